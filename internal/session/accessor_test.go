package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-explorer/internal/identity"
	"github.com/iliyamo/movie-explorer/internal/model"
)

type stubIdentity struct {
	user  model.User
	err   error
	calls int
}

func (s *stubIdentity) Get(context.Context, string) (model.User, error) {
	s.calls++
	return s.user, s.err
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		err       error
		want      State
		wantCalls int
	}{
		{name: "no token", token: "", want: Anonymous, wantCalls: 0},
		{name: "valid session", token: "t", want: Authenticated, wantCalls: 1},
		{name: "unauthorized", token: "t", err: fmt.Errorf("wrapped: %w", identity.ErrUnauthorized), want: Anonymous, wantCalls: 1},
		{name: "store down", token: "t", err: errors.New("dial tcp: refused"), want: Unavailable, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &stubIdentity{user: model.User{ID: "u1", Email: "a@b.c"}, err: tt.err}
			a := NewAccessor(id, zerolog.Nop())

			got := a.Lookup(context.Background(), tt.token)
			assert.Equal(t, tt.want, got.State)
			assert.Equal(t, tt.wantCalls, id.calls)
			if tt.want == Authenticated {
				require.NotNil(t, got.User)
				assert.Equal(t, "u1", got.User.ID)
			} else {
				assert.Nil(t, got.User)
			}
			if tt.want == Unavailable {
				assert.Error(t, got.Err)
			}
			// the collapsed accessor never errors
			assert.Equal(t, got.User == nil, a.CurrentUser(context.Background(), tt.token) == nil)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "unavailable", Unavailable.String())
}
