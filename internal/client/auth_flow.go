package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/session"
)

// LoginState is a step of the passwordless login flow.
type LoginState int

const (
	EnteringEmail LoginState = iota
	OtpSent
	Authenticated
)

func (s LoginState) String() string {
	switch s {
	case OtpSent:
		return "otp_sent"
	case Authenticated:
		return "authenticated"
	default:
		return "entering_email"
	}
}

// Validation errors surfaced directly to the user.
var (
	ErrEmailRequired = errors.New("please enter your email")
	ErrCodeLength    = errors.New("the code has 6 characters")
	ErrWrongState    = errors.New("action not allowed in the current login state")
)

// CodeLength is the length of an emailed one-time code.
const CodeLength = 6

// Account is the part of Client the login flow drives.
type Account interface {
	CreateEmailToken(ctx context.Context, email string) (model.Token, error)
	CreateSession(ctx context.Context, userID, code string) (model.Session, error)
	CreateMagicURLSession(ctx context.Context, userID, secret string) (model.Session, error)
	Lookup(ctx context.Context) session.Lookup
	Logout(ctx context.Context) error
}

// LoginFlow is the state machine behind the profile screen:
//
//	EnteringEmail -> OtpSent -> Authenticated -> EnteringEmail
//
// with Back returning from OtpSent to EnteringEmail.  A magic link callback
// jumps from either of the first two states straight to Authenticated.
type LoginFlow struct {
	api Account

	mu          sync.Mutex
	state       LoginState
	email       string
	challengeID string
	user        *model.User
}

func NewLoginFlow(api Account) *LoginFlow {
	return &LoginFlow{api: api}
}

// Resume moves to Authenticated when the account already has a live session.
// It returns the lookup so callers can report an unreachable server.
func (f *LoginFlow) Resume(ctx context.Context) session.Lookup {
	l := f.api.Lookup(ctx)
	if l.State == session.Authenticated {
		f.mu.Lock()
		f.state, f.user, f.challengeID = Authenticated, l.User, ""
		f.mu.Unlock()
	}
	return l
}

// SubmitEmail requests a code for email and moves to OtpSent.
func (f *LoginFlow) SubmitEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if f.State() != EnteringEmail {
		return ErrWrongState
	}
	tok, err := f.api.CreateEmailToken(ctx, email)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state, f.email, f.challengeID = OtpSent, email, tok.UserID
	return nil
}

// SubmitCode exchanges the emailed code for a session.  A rejected code
// leaves the flow in OtpSent and returns ErrInvalidCode.
func (f *LoginFlow) SubmitCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if utf8.RuneCountInString(code) != CodeLength {
		return ErrCodeLength
	}
	f.mu.Lock()
	state, challengeID := f.state, f.challengeID
	f.mu.Unlock()
	if state != OtpSent {
		return ErrWrongState
	}
	if _, err := f.api.CreateSession(ctx, challengeID, code); err != nil {
		return err
	}
	return f.authenticated(ctx)
}

// CompleteLink finishes login from a magic link callback URL.
func (f *LoginFlow) CompleteLink(ctx context.Context, callbackURL string) error {
	userID, secret, err := ParseCallback(callbackURL)
	if err != nil {
		return err
	}
	if f.State() == Authenticated {
		return ErrWrongState
	}
	if _, err := f.api.CreateMagicURLSession(ctx, userID, secret); err != nil {
		return err
	}
	return f.authenticated(ctx)
}

// authenticated fetches the principal of the new session.
func (f *LoginFlow) authenticated(ctx context.Context) error {
	l := f.api.Lookup(ctx)
	if l.State != session.Authenticated {
		if l.Err != nil {
			return l.Err
		}
		return ErrUnauthorized
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state, f.user, f.challengeID = Authenticated, l.User, ""
	return nil
}

// Back abandons the pending code.  The challenge stays valid server side
// until it expires.
func (f *LoginFlow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == OtpSent {
		f.state, f.challengeID = EnteringEmail, ""
	}
}

// Logout deletes the current session and returns to EnteringEmail.
func (f *LoginFlow) Logout(ctx context.Context) error {
	if f.State() != Authenticated {
		return ErrWrongState
	}
	err := f.api.Logout(ctx)
	f.mu.Lock()
	f.state, f.user, f.email = EnteringEmail, nil, ""
	f.mu.Unlock()
	return err
}

func (f *LoginFlow) State() LoginState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// User is the signed-in principal, or nil.
func (f *LoginFlow) User() *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

// ChallengeID is the id returned by the last email token request, empty
// outside OtpSent.
func (f *LoginFlow) ChallengeID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.challengeID
}

func (f *LoginFlow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}
