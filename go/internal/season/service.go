package season

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/pool"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rpcutil"
)

// SeasonServiceName is the fully-qualified name of the season admin service.
const SeasonServiceName = "draftleague.v1.SeasonService"

const (
	CreateSeasonProcedure        = "/" + SeasonServiceName + "/CreateSeason"
	GetSeasonProcedure           = "/" + SeasonServiceName + "/GetSeason"
	AddTeamProcedure             = "/" + SeasonServiceName + "/AddTeam"
	SetCurrentWeekProcedure      = "/" + SeasonServiceName + "/SetCurrentWeek"
	ImportAssetsProcedure        = "/" + SeasonServiceName + "/ImportAssets"
	SetAssetStatusProcedure      = "/" + SeasonServiceName + "/SetAssetStatus"
	ListAvailableAssetsProcedure = "/" + SeasonServiceName + "/ListAvailableAssets"
)

// SeasonApp defines what the service layer needs from the season application
type SeasonApp interface {
	CreateSeason(ctx context.Context, req CreateSeasonRequest) (*models.Season, error)
	GetSeason(ctx context.Context, seasonID uuid.UUID) (*models.Season, []models.TeamSeason, error)
	AddTeam(ctx context.Context, req AddTeamRequest) (*models.TeamSeason, error)
	SetCurrentWeek(ctx context.Context, seasonID uuid.UUID, week int) (*models.Season, error)
	ImportAssets(ctx context.Context, seasonID uuid.UUID, inputs []AssetInput) ([]models.DraftableAsset, error)
	SetAssetStatus(ctx context.Context, assetID uuid.UUID, status models.AssetStatus) (*models.DraftableAsset, error)
	ListAvailableAssets(ctx context.Context, seasonID uuid.UUID, f pool.Filter) ([]models.DraftableAsset, error)
}

var _ SeasonApp = (*App)(nil)

// Service implements the SeasonService connect interface
type Service struct {
	app SeasonApp
}

// NewService creates a new season connect service
func NewService(app SeasonApp) *Service {
	return &Service{app: app}
}

// NewSeasonServiceHandler builds an HTTP handler serving every SeasonService
// procedure and returns the path to mount it on.
func NewSeasonServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	o := rpcutil.HandlerOptions(opts...)
	mux := http.NewServeMux()
	mux.Handle(CreateSeasonProcedure, connect.NewUnaryHandler(CreateSeasonProcedure, svc.CreateSeason, o...))
	mux.Handle(GetSeasonProcedure, connect.NewUnaryHandler(GetSeasonProcedure, svc.GetSeason, o...))
	mux.Handle(AddTeamProcedure, connect.NewUnaryHandler(AddTeamProcedure, svc.AddTeam, o...))
	mux.Handle(SetCurrentWeekProcedure, connect.NewUnaryHandler(SetCurrentWeekProcedure, svc.SetCurrentWeek, o...))
	mux.Handle(ImportAssetsProcedure, connect.NewUnaryHandler(ImportAssetsProcedure, svc.ImportAssets, o...))
	mux.Handle(SetAssetStatusProcedure, connect.NewUnaryHandler(SetAssetStatusProcedure, svc.SetAssetStatus, o...))
	mux.Handle(ListAvailableAssetsProcedure, connect.NewUnaryHandler(ListAvailableAssetsProcedure, svc.ListAvailableAssets, o...))
	return "/" + SeasonServiceName + "/", mux
}

// CreateSeason creates a season (admin)
func (s *Service) CreateSeason(ctx context.Context, req *connect.Request[CreateSeasonRequest]) (*connect.Response[SeasonResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	season, err := s.app.CreateSeason(ctx, *req.Msg)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&SeasonResponse{Season: season}), nil
}

// GetSeason returns a season with its teams
func (s *Service) GetSeason(ctx context.Context, req *connect.Request[GetSeasonRequest]) (*connect.Response[GetSeasonResponse], error) {
	season, teams, err := s.app.GetSeason(ctx, req.Msg.SeasonID)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&GetSeasonResponse{Season: season, Teams: teams}), nil
}

// AddTeam assigns a team to a season (admin)
func (s *Service) AddTeam(ctx context.Context, req *connect.Request[AddTeamRequest]) (*connect.Response[AddTeamResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	team, err := s.app.AddTeam(ctx, *req.Msg)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&AddTeamResponse{Team: team}), nil
}

// SetCurrentWeek advances the season calendar (admin)
func (s *Service) SetCurrentWeek(ctx context.Context, req *connect.Request[SetCurrentWeekRequest]) (*connect.Response[SeasonResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	season, err := s.app.SetCurrentWeek(ctx, req.Msg.SeasonID, req.Msg.Week)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&SeasonResponse{Season: season}), nil
}

// ImportAssets appends to the draft pool (admin)
func (s *Service) ImportAssets(ctx context.Context, req *connect.Request[ImportAssetsRequest]) (*connect.Response[ImportAssetsResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	assets, err := s.app.ImportAssets(ctx, req.Msg.SeasonID, req.Msg.Assets)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&ImportAssetsResponse{Assets: assets}), nil
}

// SetAssetStatus bans, tera-bans or resets an asset (admin)
func (s *Service) SetAssetStatus(ctx context.Context, req *connect.Request[SetAssetStatusRequest]) (*connect.Response[AssetResponse], error) {
	if err := rpcutil.RequireAdmin(req.Header()); err != nil {
		return nil, err
	}
	asset, err := s.app.SetAssetStatus(ctx, req.Msg.AssetID, req.Msg.Status)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&AssetResponse{Asset: asset}), nil
}

// ListAvailableAssets lists the pickable pool
func (s *Service) ListAvailableAssets(ctx context.Context, req *connect.Request[ListAvailableAssetsRequest]) (*connect.Response[ListAvailableAssetsResponse], error) {
	assets, err := s.app.ListAvailableAssets(ctx, req.Msg.SeasonID, req.Msg.Filter)
	if err != nil {
		return nil, rpcutil.ToConnectError(err)
	}
	return connect.NewResponse(&ListAvailableAssetsResponse{Assets: assets}), nil
}
