package rpcutil

import (
	"errors"
	"strings"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rejection"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

// ReasonHeader carries the rejection reason of a refused request.
const ReasonHeader = "Rejection-Reason"

var reasonCodes = map[rejection.Reason]connect.Code{
	rejection.NotYourTurn:             connect.CodeFailedPrecondition,
	rejection.SessionNotActive:        connect.CodeFailedPrecondition,
	rejection.SessionAlreadyActive:    connect.CodeAlreadyExists,
	rejection.DraftNotCompleted:       connect.CodeFailedPrecondition,
	rejection.BidTooLow:               connect.CodeFailedPrecondition,
	rejection.AssetUnavailable:        connect.CodeFailedPrecondition,
	rejection.AlreadyDrafted:          connect.CodeAlreadyExists,
	rejection.AssetNotOnRoster:        connect.CodeFailedPrecondition,
	rejection.BudgetExceeded:          connect.CodeFailedPrecondition,
	rejection.RosterFull:              connect.CodeFailedPrecondition,
	rejection.RosterBelowMinimum:      connect.CodeFailedPrecondition,
	rejection.TransactionLimitReached: connect.CodeResourceExhausted,
	rejection.DeadlinePassed:          connect.CodeFailedPrecondition,
	rejection.InvariantViolation:      connect.CodeInternal,
}

// ToConnectError maps an application error to a connect error. Rejections
// keep their reason in ReasonHeader.
func ToConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	if reason, ok := rejection.ReasonOf(err); ok {
		code, known := reasonCodes[reason]
		if !known {
			code = connect.CodeFailedPrecondition
		}
		cerr := connect.NewError(code, err)
		cerr.Meta().Set(ReasonHeader, string(reason))
		return cerr
	}
	switch {
	case errors.Is(err, rejection.ErrValidation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	}
	log.Error().Err(err).Msg("internal error serving request")
	return connect.NewError(connect.CodeInternal, err)
}

// FromConnectError recovers the rejection carried by a connect error, so a
// client sees the same typed refusal the server produced.
func FromConnectError(err error) error {
	var ce *connect.Error
	if !errors.As(err, &ce) {
		return err
	}
	if reason, ok := rejection.Parse(ce.Meta().Get(ReasonHeader)); ok {
		return rejection.New(reason, "%s", strings.TrimPrefix(ce.Message(), string(reason)+": "))
	}
	switch ce.Code() {
	case connect.CodeInvalidArgument:
		return rejection.Invalid("%s", ce.Message())
	case connect.CodeNotFound:
		return errors.Join(storage.ErrNotFound, err)
	}
	return err
}
