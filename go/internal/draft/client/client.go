// Package client is the typed connect client for DraftService. It is what the
// standalone timer service and draftctl talk to the draft server through.
package client

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/models"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rpcutil"
)

var _ draft.DraftApp = (*Client)(nil)

// Client calls DraftService as a fixed caller.
type Client struct {
	caller rpcutil.Caller

	createSession    *connect.Client[draft.CreateSessionRequest, draft.SessionResponse]
	startSession     *connect.Client[draft.SessionRequest, draft.SessionResponse]
	pauseSession     *connect.Client[draft.SessionRequest, draft.SessionResponse]
	resumeSession    *connect.Client[draft.SessionRequest, draft.SessionResponse]
	cancelSession    *connect.Client[draft.SessionRequest, draft.SessionResponse]
	attemptPick      *connect.Client[draft.AttemptPickRequest, draft.PickResponse]
	resolveTimeout   *connect.Client[draft.ResolveTimeoutRequest, draft.PickResponse]
	nominate         *connect.Client[draft.NominateRequest, draft.LotResponse]
	placeBid         *connect.Client[draft.PlaceBidRequest, draft.LotResponse]
	resolveLot       *connect.Client[draft.SessionRequest, draft.PickResponse]
	getSessionState  *connect.Client[draft.SessionRequest, draft.SessionStateResponse]
	listPicks        *connect.Client[draft.SessionRequest, draft.ListPicksResponse]
	listSessions     *connect.Client[draft.ListSessionsRequest, draft.ListSessionsResponse]
	pendingDeadlines *connect.Client[draft.PendingDeadlinesRequest, draft.PendingDeadlinesResponse]
}

// New creates a client for the server at baseURL.
func New(httpClient connect.HTTPClient, baseURL string, caller rpcutil.Caller, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	o := rpcutil.ClientOptions(opts...)
	return &Client{
		caller:           caller,
		createSession:    connect.NewClient[draft.CreateSessionRequest, draft.SessionResponse](httpClient, baseURL+draft.CreateSessionProcedure, o...),
		startSession:     connect.NewClient[draft.SessionRequest, draft.SessionResponse](httpClient, baseURL+draft.StartSessionProcedure, o...),
		pauseSession:     connect.NewClient[draft.SessionRequest, draft.SessionResponse](httpClient, baseURL+draft.PauseSessionProcedure, o...),
		resumeSession:    connect.NewClient[draft.SessionRequest, draft.SessionResponse](httpClient, baseURL+draft.ResumeSessionProcedure, o...),
		cancelSession:    connect.NewClient[draft.SessionRequest, draft.SessionResponse](httpClient, baseURL+draft.CancelSessionProcedure, o...),
		attemptPick:      connect.NewClient[draft.AttemptPickRequest, draft.PickResponse](httpClient, baseURL+draft.AttemptPickProcedure, o...),
		resolveTimeout:   connect.NewClient[draft.ResolveTimeoutRequest, draft.PickResponse](httpClient, baseURL+draft.ResolveTimeoutProcedure, o...),
		nominate:         connect.NewClient[draft.NominateRequest, draft.LotResponse](httpClient, baseURL+draft.NominateProcedure, o...),
		placeBid:         connect.NewClient[draft.PlaceBidRequest, draft.LotResponse](httpClient, baseURL+draft.PlaceBidProcedure, o...),
		resolveLot:       connect.NewClient[draft.SessionRequest, draft.PickResponse](httpClient, baseURL+draft.ResolveLotProcedure, o...),
		getSessionState:  connect.NewClient[draft.SessionRequest, draft.SessionStateResponse](httpClient, baseURL+draft.GetSessionStateProcedure, o...),
		listPicks:        connect.NewClient[draft.SessionRequest, draft.ListPicksResponse](httpClient, baseURL+draft.ListPicksProcedure, o...),
		listSessions:     connect.NewClient[draft.ListSessionsRequest, draft.ListSessionsResponse](httpClient, baseURL+draft.ListSessionsProcedure, o...),
		pendingDeadlines: connect.NewClient[draft.PendingDeadlinesRequest, draft.PendingDeadlinesResponse](httpClient, baseURL+draft.PendingDeadlinesProcedure, o...),
	}
}

// NewDefault uses http.DefaultClient.
func NewDefault(baseURL string, caller rpcutil.Caller) *Client {
	return New(http.DefaultClient, baseURL, caller)
}

func call[Req, Res any](ctx context.Context, c *Client, cl *connect.Client[Req, Res], msg *Req) (*Res, error) {
	req := connect.NewRequest(msg)
	rpcutil.SetCaller(req.Header(), c.caller)
	res, err := cl.CallUnary(ctx, req)
	if err != nil {
		return nil, rpcutil.FromConnectError(err)
	}
	return res.Msg, nil
}

func (c *Client) CreateSession(ctx context.Context, req draft.CreateSessionRequest) (*models.DraftSession, error) {
	res, err := call(ctx, c, c.createSession, &req)
	if err != nil {
		return nil, err
	}
	return res.Session, nil
}

func (c *Client) StartSession(ctx context.Context, sessionID uuid.UUID) (*models.DraftSession, error) {
	return c.session(ctx, c.startSession, sessionID, "")
}

func (c *Client) PauseSession(ctx context.Context, sessionID uuid.UUID, reason string) (*models.DraftSession, error) {
	return c.session(ctx, c.pauseSession, sessionID, reason)
}

func (c *Client) ResumeSession(ctx context.Context, sessionID uuid.UUID) (*models.DraftSession, error) {
	return c.session(ctx, c.resumeSession, sessionID, "")
}

func (c *Client) CancelSession(ctx context.Context, sessionID uuid.UUID, reason string) (*models.DraftSession, error) {
	return c.session(ctx, c.cancelSession, sessionID, reason)
}

func (c *Client) session(ctx context.Context, cl *connect.Client[draft.SessionRequest, draft.SessionResponse], sessionID uuid.UUID, reason string) (*models.DraftSession, error) {
	res, err := call(ctx, c, cl, &draft.SessionRequest{SessionID: sessionID, Reason: reason})
	if err != nil {
		return nil, err
	}
	return res.Session, nil
}

// AttemptPick picks for the client's team; teamID may be uuid.Nil for coaches.
func (c *Client) AttemptPick(ctx context.Context, sessionID, teamID, assetID uuid.UUID) (*models.DraftPick, error) {
	res, err := call(ctx, c, c.attemptPick, &draft.AttemptPickRequest{SessionID: sessionID, TeamID: teamID, AssetID: assetID})
	if err != nil {
		return nil, err
	}
	return res.Pick, nil
}

func (c *Client) ResolveTimeout(ctx context.Context, sessionID uuid.UUID, expectedPickNumber int) (*models.DraftPick, error) {
	res, err := call(ctx, c, c.resolveTimeout, &draft.ResolveTimeoutRequest{SessionID: sessionID, ExpectedPickNumber: expectedPickNumber})
	if err != nil {
		return nil, err
	}
	return res.Pick, nil
}

func (c *Client) Nominate(ctx context.Context, sessionID, teamID, assetID uuid.UUID, openingBid int) (*models.AuctionLot, error) {
	res, err := call(ctx, c, c.nominate, &draft.NominateRequest{SessionID: sessionID, TeamID: teamID, AssetID: assetID, OpeningBid: openingBid})
	if err != nil {
		return nil, err
	}
	return res.Lot, nil
}

func (c *Client) PlaceBid(ctx context.Context, sessionID, teamID uuid.UUID, amount int) (*models.AuctionLot, error) {
	res, err := call(ctx, c, c.placeBid, &draft.PlaceBidRequest{SessionID: sessionID, TeamID: teamID, Amount: amount})
	if err != nil {
		return nil, err
	}
	return res.Lot, nil
}

func (c *Client) ResolveLot(ctx context.Context, sessionID uuid.UUID) (*models.DraftPick, error) {
	res, err := call(ctx, c, c.resolveLot, &draft.SessionRequest{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	return res.Pick, nil
}

func (c *Client) GetSessionState(ctx context.Context, sessionID uuid.UUID) (*draft.SessionState, error) {
	res, err := call(ctx, c, c.getSessionState, &draft.SessionRequest{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	return res.State, nil
}

func (c *Client) ListPicks(ctx context.Context, sessionID uuid.UUID) ([]models.DraftPick, error) {
	res, err := call(ctx, c, c.listPicks, &draft.SessionRequest{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	return res.Picks, nil
}

func (c *Client) ListSessions(ctx context.Context, seasonID uuid.UUID) ([]models.DraftSession, error) {
	res, err := call(ctx, c, c.listSessions, &draft.ListSessionsRequest{SeasonID: seasonID})
	if err != nil {
		return nil, err
	}
	return res.Sessions, nil
}

func (c *Client) PendingDeadlines(ctx context.Context) ([]draft.Deadline, error) {
	res, err := call(ctx, c, c.pendingDeadlines, &draft.PendingDeadlinesRequest{})
	if err != nil {
		return nil, err
	}
	return res.Deadlines, nil
}
