package draft

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
)

// Nominate opens bidding on assetID. Only the team holding the current
// nomination slot may nominate, and its opening bid must be one it could pay.
func (a *App) Nominate(ctx context.Context, sessionID, teamID, assetID uuid.UUID, openingBid int) (*models.AuctionLot, error) {
	if openingBid < 1 {
		return nil, rejection.Invalid("opening bid must be at least 1")
	}

	var lot *models.AuctionLot
	_, err := a.mutate(ctx, sessionID, func(ctx context.Context, u *unit) error {
		s := u.session
		if err := requireAuction(s); err != nil {
			return err
		}
		if s.Lot == nil || s.Lot.Phase != models.AuctionPhaseNominationOpen {
			return rejection.New(rejection.NotYourTurn, "a lot is already open for pick %d", s.CurrentPickNumber)
		}
		if teamID != s.CurrentTeamID {
			return rejection.New(rejection.NotYourTurn, "nomination %d belongs to team %s", s.CurrentPickNumber, s.CurrentTeamID)
		}
		if err := a.verifyPointer(ctx, u); err != nil {
			return err
		}

		asset, err := u.pool.Pickable(ctx, s.SeasonID, assetID)
		if err != nil {
			return err
		}
		team, err := a.loadTeam(ctx, u, teamID)
		if err != nil {
			return err
		}
		if err := u.ledger.CheckAcquisition(team, openingBid); err != nil {
			return err
		}

		closes := u.now.Add(s.PickTimeLimit())
		s.Lot = &models.AuctionLot{
			AssetID:      asset.ID,
			NominatedBy:  teamID,
			Phase:        models.AuctionPhaseBiddingOpen,
			HighBid:      openingBid,
			HighBidderID: teamID,
			HighBidAt:    u.now,
			ClosesAt:     closes,
			Bids:         []models.Bid{{TeamID: teamID, Amount: openingBid, PlacedAt: u.now}},
		}
		s.PickDeadline = &closes
		c := s.Lot.Clone()
		lot = &c
		return u.emit(events.EventTypeLotNominated, lotPayload(s, asset))
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("team_id", teamID.String()).
		Str("asset_id", assetID.String()).
		Int("opening_bid", openingBid).
		Msg("asset nominated")
	return lot, nil
}

// PlaceBid raises the high bid on the open lot. Every accepted bid restarts
// the lot's clock.
func (a *App) PlaceBid(ctx context.Context, sessionID, teamID uuid.UUID, amount int) (*models.AuctionLot, error) {
	var lot *models.AuctionLot
	_, err := a.mutate(ctx, sessionID, func(ctx context.Context, u *unit) error {
		s := u.session
		if err := requireAuction(s); err != nil {
			return err
		}
		l := s.Lot
		if l == nil || l.Phase != models.AuctionPhaseBiddingOpen {
			return rejection.New(rejection.NotYourTurn, "no lot is open for bidding")
		}
		if !u.now.Before(l.ClosesAt) {
			return rejection.New(rejection.NotYourTurn, "bidding closed at %s", l.ClosesAt.Format("15:04:05"))
		}
		if amount <= l.HighBid {
			return rejection.New(rejection.BidTooLow, "bid %d does not beat %d", amount, l.HighBid)
		}

		team, err := a.loadTeam(ctx, u, teamID)
		if err != nil {
			return err
		}
		if err := u.ledger.CheckAcquisition(team, amount); err != nil {
			return err
		}
		asset, err := u.tx.Assets().Get(ctx, l.AssetID)
		if err != nil {
			return fmt.Errorf("failed to load nominated asset: %w", err)
		}

		closes := u.now.Add(s.PickTimeLimit())
		l.Bids = append(l.Bids, models.Bid{TeamID: teamID, Amount: amount, PlacedAt: u.now})
		l.HighBid = amount
		l.HighBidderID = teamID
		l.HighBidAt = u.now
		l.ClosesAt = closes
		s.PickDeadline = &closes
		c := l.Clone()
		lot = &c
		return u.emit(events.EventTypeBidPlaced, lotPayload(s, asset))
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("team_id", teamID.String()).
		Int("amount", amount).
		Msg("bid placed")
	return lot, nil
}

// ResolveLot is the admin's hammer: it settles the open lot immediately
// instead of waiting for its clock.
func (a *App) ResolveLot(ctx context.Context, sessionID uuid.UUID) (*models.DraftPick, error) {
	s, err := a.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireAuction(s); err != nil {
		return nil, err
	}
	if s.Lot == nil || s.Lot.Phase != models.AuctionPhaseBiddingOpen {
		return nil, rejection.New(rejection.NotYourTurn, "no lot is open for bidding")
	}
	return a.resolveTurn(ctx, sessionID, s.CurrentPickNumber, true)
}

func requireAuction(s *models.DraftSession) error {
	if s.Status != models.DraftStatusActive {
		return rejection.New(rejection.SessionNotActive, "session is %s", s.Status)
	}
	if s.DraftType != models.DraftTypeAuction {
		return rejection.New(rejection.NotYourTurn, "session %s is a %s draft", s.ID, s.DraftType)
	}
	return nil
}

// resolveAuctionTimeout closes the current lot. A lot with bids goes to the
// high bidder at the high bid; an unused nomination slot is skipped.
func (a *App) resolveAuctionTimeout(ctx context.Context, u *unit) (*models.DraftPick, error) {
	s := u.session
	l := s.Lot
	nominator, err := a.loadTeam(ctx, u, s.CurrentTeamID)
	if err != nil {
		return nil, err
	}
	if l == nil || l.Phase != models.AuctionPhaseBiddingOpen {
		if l != nil {
			l.Phase = models.AuctionPhaseResolved
		}
		if err := u.emit(events.EventTypeLotResolved, lotPayload(s, nil)); err != nil {
			return nil, err
		}
		return a.recordTurn(ctx, u, nominator.TeamID, nil, 0, models.PickResolutionAutoSkip, nominator)
	}

	l.Phase = models.AuctionPhaseResolved
	asset, err := u.pool.Pickable(ctx, s.SeasonID, l.AssetID)
	if err == nil {
		var winner *models.TeamSeason
		winner, err = a.loadTeam(ctx, u, l.HighBidderID)
		if err != nil {
			return nil, err
		}
		if err = u.ledger.CheckAcquisition(winner, l.HighBid); err == nil {
			if err := u.emit(events.EventTypeLotResolved, lotPayload(s, asset)); err != nil {
				return nil, err
			}
			return a.acquire(ctx, u, winner, asset, l.HighBid, models.PickResolutionAuction)
		}
	}
	if !rejection.IsRejection(err) {
		return nil, err
	}

	// The lot cannot be settled as bid; the slot passes without an acquisition.
	log.Warn().
		Err(err).
		Str("session_id", s.ID.String()).
		Str("asset_id", l.AssetID.String()).
		Str("high_bidder_id", l.HighBidderID.String()).
		Msg("auction lot could not be settled, skipping slot")
	if err := u.emit(events.EventTypeLotResolved, lotPayload(s, nil)); err != nil {
		return nil, err
	}
	return a.recordTurn(ctx, u, nominator.TeamID, nil, 0, models.PickResolutionAutoSkip, nominator)
}
