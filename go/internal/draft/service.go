package draft

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rpcutil"
)

// DraftServiceName is the fully-qualified name of the draft service.
const DraftServiceName = "draftleague.v1.DraftService"

// Procedure paths of DraftService.
const (
	CreateSessionProcedure    = "/" + DraftServiceName + "/CreateSession"
	StartSessionProcedure     = "/" + DraftServiceName + "/StartSession"
	PauseSessionProcedure     = "/" + DraftServiceName + "/PauseSession"
	ResumeSessionProcedure    = "/" + DraftServiceName + "/ResumeSession"
	CancelSessionProcedure    = "/" + DraftServiceName + "/CancelSession"
	AttemptPickProcedure      = "/" + DraftServiceName + "/AttemptPick"
	ResolveTimeoutProcedure   = "/" + DraftServiceName + "/ResolveTimeout"
	NominateProcedure         = "/" + DraftServiceName + "/Nominate"
	PlaceBidProcedure         = "/" + DraftServiceName + "/PlaceBid"
	ResolveLotProcedure       = "/" + DraftServiceName + "/ResolveLot"
	GetSessionStateProcedure  = "/" + DraftServiceName + "/GetSessionState"
	ListPicksProcedure        = "/" + DraftServiceName + "/ListPicks"
	ListSessionsProcedure     = "/" + DraftServiceName + "/ListSessions"
	PendingDeadlinesProcedure = "/" + DraftServiceName + "/PendingDeadlines"
)

// DraftApp defines what the service layer needs from the draft application
type DraftApp interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*models.DraftSession, error)
	StartSession(ctx context.Context, sessionID uuid.UUID) (*models.DraftSession, error)
	PauseSession(ctx context.Context, sessionID uuid.UUID, reason string) (*models.DraftSession, error)
	ResumeSession(ctx context.Context, sessionID uuid.UUID) (*models.DraftSession, error)
	CancelSession(ctx context.Context, sessionID uuid.UUID, reason string) (*models.DraftSession, error)
	AttemptPick(ctx context.Context, sessionID, teamID, assetID uuid.UUID) (*models.DraftPick, error)
	ResolveTimeout(ctx context.Context, sessionID uuid.UUID, expectedPickNumber int) (*models.DraftPick, error)
	Nominate(ctx context.Context, sessionID, teamID, assetID uuid.UUID, openingBid int) (*models.AuctionLot, error)
	PlaceBid(ctx context.Context, sessionID, teamID uuid.UUID, amount int) (*models.AuctionLot, error)
	ResolveLot(ctx context.Context, sessionID uuid.UUID) (*models.DraftPick, error)
	GetSessionState(ctx context.Context, sessionID uuid.UUID) (*SessionState, error)
	ListPicks(ctx context.Context, sessionID uuid.UUID) ([]models.DraftPick, error)
	ListSessions(ctx context.Context, seasonID uuid.UUID) ([]models.DraftSession, error)
	PendingDeadlines(ctx context.Context) ([]Deadline, error)
}

var _ DraftApp = (*App)(nil)

// Service implements the DraftService connect interface
type Service struct {
	app DraftApp
}

// NewService creates a new draft connect service
func NewService(app DraftApp) *Service {
	return &Service{app: app}
}

// NewDraftServiceHandler builds an HTTP handler serving every DraftService
// procedure. It returns the path to mount the handler on.
func NewDraftServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	o := rpcutil.HandlerOptions(opts...)
	mux := http.NewServeMux()
	mux.Handle(CreateSessionProcedure, connect.NewUnaryHandler(CreateSessionProcedure, svc.CreateSession, o...))
	mux.Handle(StartSessionProcedure, connect.NewUnaryHandler(StartSessionProcedure, svc.StartSession, o...))
	mux.Handle(PauseSessionProcedure, connect.NewUnaryHandler(PauseSessionProcedure, svc.PauseSession, o...))
	mux.Handle(ResumeSessionProcedure, connect.NewUnaryHandler(ResumeSessionProcedure, svc.ResumeSession, o...))
	mux.Handle(CancelSessionProcedure, connect.NewUnaryHandler(CancelSessionProcedure, svc.CancelSession, o...))
	mux.Handle(AttemptPickProcedure, connect.NewUnaryHandler(AttemptPickProcedure, svc.AttemptPick, o...))
	mux.Handle(ResolveTimeoutProcedure, connect.NewUnaryHandler(ResolveTimeoutProcedure, svc.ResolveTimeout, o...))
	mux.Handle(NominateProcedure, connect.NewUnaryHandler(NominateProcedure, svc.Nominate, o...))
	mux.Handle(PlaceBidProcedure, connect.NewUnaryHandler(PlaceBidProcedure, svc.PlaceBid, o...))
	mux.Handle(ResolveLotProcedure, connect.NewUnaryHandler(ResolveLotProcedure, svc.ResolveLot, o...))
	mux.Handle(GetSessionStateProcedure, connect.NewUnaryHandler(GetSessionStateProcedure, svc.GetSessionState, o...))
	mux.Handle(ListPicksProcedure, connect.NewUnaryHandler(ListPicksProcedure, svc.ListPicks, o...))
	mux.Handle(ListSessionsProcedure, connect.NewUnaryHandler(ListSessionsProcedure, svc.ListSessions, o...))
	mux.Handle(PendingDeadlinesProcedure, connect.NewUnaryHandler(PendingDeadlinesProcedure, svc.PendingDeadlines, o...))
	return "/" + DraftServiceName + "/", mux
}

// CreateSession creates a pending draft session (admin)
func (s *Service) CreateSession(ctx context.Context, req *connect.Request[CreateSessionRequest]) (*connect.Response[SessionResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	session, err := s.app.CreateSession(ctx, *req.Msg)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&SessionResponse{Session: session}), nil
}

// StartSession starts a pending session (admin)
func (s *Service) StartSession(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[SessionResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	return sessionResponse(s.app.StartSession(ctx, req.Msg.SessionID))
}

// PauseSession pauses an active session (admin)
func (s *Service) PauseSession(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[SessionResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	return sessionResponse(s.app.PauseSession(ctx, req.Msg.SessionID, req.Msg.Reason))
}

// ResumeSession resumes a paused session (admin)
func (s *Service) ResumeSession(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[SessionResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	return sessionResponse(s.app.ResumeSession(ctx, req.Msg.SessionID))
}

// CancelSession cancels an open session (admin)
func (s *Service) CancelSession(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[SessionResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	return sessionResponse(s.app.CancelSession(ctx, req.Msg.SessionID, req.Msg.Reason))
}

func sessionResponse(session *models.DraftSession, err error) (*connect.Response[SessionResponse], error) {
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&SessionResponse{Session: session}), nil
}

// AttemptPick drafts an asset for the caller's team
func (s *Service) AttemptPick(ctx context.Context, req *connect.Request[AttemptPickRequest]) (*connect.Response[PickResponse], error) {
	teamID, err := rpcutil.ActingTeam(req.Header(), req.Msg.TeamID)
	if err != nil {
		return nil, err
	}
	pick, err := s.app.AttemptPick(ctx, req.Msg.SessionID, teamID, req.Msg.AssetID)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&PickResponse{Pick: pick}), nil
}

// ResolveTimeout resolves an expired pick clock (admin; called by the timer service)
func (s *Service) ResolveTimeout(ctx context.Context, req *connect.Request[ResolveTimeoutRequest]) (*connect.Response[PickResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	pick, err := s.app.ResolveTimeout(ctx, req.Msg.SessionID, req.Msg.ExpectedPickNumber)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&PickResponse{Pick: pick}), nil
}

// Nominate opens an auction lot for the caller's team
func (s *Service) Nominate(ctx context.Context, req *connect.Request[NominateRequest]) (*connect.Response[LotResponse], error) {
	teamID, err := rpcutil.ActingTeam(req.Header(), req.Msg.TeamID)
	if err != nil {
		return nil, err
	}
	lot, err := s.app.Nominate(ctx, req.Msg.SessionID, teamID, req.Msg.AssetID, req.Msg.OpeningBid)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&LotResponse{Lot: lot}), nil
}

// PlaceBid bids on the open lot for the caller's team
func (s *Service) PlaceBid(ctx context.Context, req *connect.Request[PlaceBidRequest]) (*connect.Response[LotResponse], error) {
	teamID, err := rpcutil.ActingTeam(req.Header(), req.Msg.TeamID)
	if err != nil {
		return nil, err
	}
	lot, err := s.app.PlaceBid(ctx, req.Msg.SessionID, teamID, req.Msg.Amount)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&LotResponse{Lot: lot}), nil
}

// ResolveLot settles the open lot immediately (admin)
func (s *Service) ResolveLot(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[PickResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	pick, err := s.app.ResolveLot(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&PickResponse{Pick: pick}), nil
}

// GetSessionState returns the session projection
func (s *Service) GetSessionState(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[SessionStateResponse], error) {
	state, err := s.app.GetSessionState(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&SessionStateResponse{State: state}), nil
}

// ListPicks returns the session's pick log
func (s *Service) ListPicks(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[ListPicksResponse], error) {
	picks, err := s.app.ListPicks(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&ListPicksResponse{Picks: picks}), nil
}

// ListSessions returns a season's sessions
func (s *Service) ListSessions(ctx context.Context, req *connect.Request[ListSessionsRequest]) (*connect.Response[ListSessionsResponse], error) {
	sessions, err := s.app.ListSessions(ctx, req.Msg.SeasonID)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&ListSessionsResponse{Sessions: sessions}), nil
}

// PendingDeadlines lists armed pick clocks (admin; used by the timer service to recover)
func (s *Service) PendingDeadlines(ctx context.Context, req *connect.Request[PendingDeadlinesRequest]) (*connect.Response[PendingDeadlinesResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	deadlines, err := s.app.PendingDeadlines(ctx)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&PendingDeadlinesResponse{Deadlines: deadlines}), nil
}
