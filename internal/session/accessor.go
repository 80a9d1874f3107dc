// Package session resolves the current principal.  A lookup distinguishes
// "logged out" from "identity service unreachable"; CurrentUser keeps the
// collapsed form for callers that only care whether someone is signed in.
package session

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/identity"
	"github.com/iliyamo/movie-explorer/internal/model"
)

// State is the outcome of a principal lookup.
type State int

const (
	Anonymous State = iota
	Authenticated
	Unavailable
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unavailable:
		return "unavailable"
	default:
		return "anonymous"
	}
}

// Lookup is the result of resolving a session.  User is set only when State
// is Authenticated; Err is set only when State is Unavailable.
type Lookup struct {
	User  *model.User
	State State
	Err   error
}

// Identity is the slice of the identity service the accessor needs.
type Identity interface {
	Get(ctx context.Context, accessToken string) (model.User, error)
}

// Accessor resolves bearer tokens to principals.
type Accessor struct {
	identity Identity
	log      zerolog.Logger
}

func NewAccessor(id Identity, log zerolog.Logger) *Accessor {
	return &Accessor{identity: id, log: log}
}

// Lookup resolves token.  An empty token or an unauthorized answer is
// Anonymous; any other failure is Unavailable and logged.
func (a *Accessor) Lookup(ctx context.Context, token string) Lookup {
	if token == "" {
		return Lookup{State: Anonymous}
	}
	u, err := a.identity.Get(ctx, token)
	switch {
	case err == nil:
		return Lookup{User: &u, State: Authenticated}
	case errors.Is(err, identity.ErrUnauthorized):
		return Lookup{State: Anonymous}
	default:
		a.log.Error().Err(err).Msg("get current user")
		return Lookup{State: Unavailable, Err: err}
	}
}

// CurrentUser returns the principal or nil.  Logged-out and unreachable are
// both nil here; use Lookup to tell them apart.
func (a *Accessor) CurrentUser(ctx context.Context, token string) *model.User {
	return a.Lookup(ctx, token).User
}
