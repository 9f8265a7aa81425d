package rpcutil

import (
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

// Identity headers. Authentication happens in front of this service; by the
// time a request arrives these headers are trusted.
const (
	TeamHeader = "Draft-Team-Id"
	RoleHeader = "Draft-Role"
	RoleAdmin  = "admin"
)

// Caller is who a request acts for.
type Caller struct {
	TeamID uuid.UUID
	Admin  bool
}

// CallerFrom reads the identity headers.
func CallerFrom(h http.Header) Caller {
	c := Caller{Admin: strings.EqualFold(h.Get(RoleHeader), RoleAdmin)}
	if id, err := uuid.Parse(h.Get(TeamHeader)); err == nil {
		c.TeamID = id
	}
	return c
}

// RequireAdmin refuses callers without the admin role.
func RequireAdmin(h http.Header) error {
	if !CallerFrom(h).Admin {
		return connect.NewError(connect.CodePermissionDenied, errors.New("admin role required"))
	}
	return nil
}

// ActingTeam resolves the team a coach request acts for. A coach may only act
// for the team in its identity header; an admin may act for any team.
func ActingTeam(h http.Header, requested uuid.UUID) (uuid.UUID, error) {
	c := CallerFrom(h)
	switch {
	case c.Admin && requested != uuid.Nil:
		return requested, nil
	case c.TeamID == uuid.Nil:
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, errors.New("missing "+TeamHeader+" header"))
	case requested != uuid.Nil && requested != c.TeamID:
		return uuid.Nil, connect.NewError(connect.CodePermissionDenied, errors.New("cannot act for another team"))
	}
	return c.TeamID, nil
}

// SetCaller writes identity headers on an outgoing request.
func SetCaller(h http.Header, c Caller) {
	if c.TeamID != uuid.Nil {
		h.Set(TeamHeader, c.TeamID.String())
	}
	if c.Admin {
		h.Set(RoleHeader, RoleAdmin)
	}
}
