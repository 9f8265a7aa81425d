package freeagency

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rpcutil"
)

// FreeAgencyServiceName is the fully-qualified name of the free agency service.
const FreeAgencyServiceName = "draftleague.v1.FreeAgencyService"

const (
	SubmitTransactionProcedure = "/" + FreeAgencyServiceName + "/SubmitTransaction"
	ListTransactionsProcedure  = "/" + FreeAgencyServiceName + "/ListTransactions"
	GetTeamStatusProcedure     = "/" + FreeAgencyServiceName + "/GetTeamStatus"
)

// FreeAgencyApp defines what the service layer needs from the free agency application
type FreeAgencyApp interface {
	SubmitTransaction(ctx context.Context, req SubmitTransactionRequest) (*models.Transaction, *TeamStatus, error)
	ListTransactions(ctx context.Context, req ListTransactionsRequest) ([]models.Transaction, error)
	GetTeamStatus(ctx context.Context, seasonID, teamID uuid.UUID) (*TeamStatus, error)
}

var _ FreeAgencyApp = (*App)(nil)

// Service implements the FreeAgencyService connect interface
type Service struct {
	app FreeAgencyApp
}

// NewService creates a new free agency connect service
func NewService(app FreeAgencyApp) *Service {
	return &Service{app: app}
}

// NewFreeAgencyServiceHandler builds an HTTP handler serving every
// FreeAgencyService procedure and returns the path to mount it on.
func NewFreeAgencyServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	o := rpcutil.HandlerOptions(opts...)
	mux := http.NewServeMux()
	mux.Handle(SubmitTransactionProcedure, connect.NewUnaryHandler(SubmitTransactionProcedure, svc.SubmitTransaction, o...))
	mux.Handle(ListTransactionsProcedure, connect.NewUnaryHandler(ListTransactionsProcedure, svc.ListTransactions, o...))
	mux.Handle(GetTeamStatusProcedure, connect.NewUnaryHandler(GetTeamStatusProcedure, svc.GetTeamStatus, o...))
	return "/" + FreeAgencyServiceName + "/", mux
}

// SubmitTransaction applies a transaction for the caller's team
func (s *Service) SubmitTransaction(ctx context.Context, req *connect.Request[SubmitTransactionRequest]) (*connect.Response[SubmitTransactionResponse], error) {
	teamID, err := rpcutil.ActingTeam(req.Header(), req.Msg.TeamID)
	if err != nil {
		return nil, err
	}
	admin := rpcutil.CallerFrom(req.Header()).Admin
	if !admin && (req.Msg.RefundPoints != nil || req.Msg.Week != nil) {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("refund_points and week require the admin role"))
	}
	appReq := *req.Msg
	appReq.TeamID = teamID
	appReq.Admin = admin

	txn, status, err := s.app.SubmitTransaction(ctx, appReq)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&SubmitTransactionResponse{Transaction: txn, Status: status}), nil
}

// ListTransactions lists a season's transactions, optionally for one team
func (s *Service) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	txns, err := s.app.ListTransactions(ctx, *req.Msg)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&ListTransactionsResponse{Transactions: txns}), nil
}

// GetTeamStatus returns a team's ledger
func (s *Service) GetTeamStatus(ctx context.Context, req *connect.Request[GetTeamStatusRequest]) (*connect.Response[GetTeamStatusResponse], error) {
	status, err := s.app.GetTeamStatus(ctx, req.Msg.SeasonID, req.Msg.TeamID)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&GetTeamStatusResponse{Status: status}), nil
}
