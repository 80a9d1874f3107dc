// Package identity implements passwordless accounts: one-time email codes
// and magic links are exchanged for sessions made of a short-lived JWT access
// token and a rotating refresh token.
package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-explorer/internal/model"
	"github.com/iliyamo/movie-explorer/internal/repository"
	"github.com/iliyamo/movie-explorer/internal/utils"
)

var (
	// ErrUnauthorized means the caller has no valid session.  It is the
	// expected "logged out" signal, not a service failure.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidToken means the presented code or link secret does not match
	// a live challenge.  The caller may retry with another code.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidEmail is a validation error for the email token request.
	ErrInvalidEmail = errors.New("a valid email is required")
)

type UserStore interface {
	GetOrCreateByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, sessionID, userID, refreshHash string, exp time.Time) error
	Active(ctx context.Context, sessionID string) (string, error)
	ByRefreshHash(ctx context.Context, refreshHash string) (string, string, error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type ChallengeStore interface {
	Put(ctx context.Context, c repository.Challenge) error
	Get(ctx context.Context, userID string) (repository.Challenge, error)
	IncrAttempts(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID string) error
}

// EmailToken is the message handed to a Mailer for delivery.
type EmailToken struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	Code     string    `json:"code"`
	MagicURL string    `json:"magic_url"`
	Expire   time.Time `json:"expire"`
}

// Mailer delivers login codes.
type Mailer interface {
	SendEmailToken(ctx context.Context, msg EmailToken) error
}

// Options tunes token lifetimes and hashing.
type Options struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	OTPTTL         time.Duration
	OTPMaxAttempts int
	BcryptCost     int
	MagicURLBase   string // e.g. movies://auth or https://app.example.com/
}

// Service is the identity provider used by the HTTP layer.
type Service struct {
	users      UserStore
	sessions   SessionStore
	challenges ChallengeStore
	mailer     Mailer
	opts       Options
	log        zerolog.Logger
}

// NewService wires the identity provider.  All stores must be non-nil.
func NewService(users UserStore, sessions SessionStore, challenges ChallengeStore, mailer Mailer, opts Options, log zerolog.Logger) *Service {
	if users == nil || sessions == nil || challenges == nil || mailer == nil {
		panic("nil dependency passed to identity.NewService")
	}
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 15 * time.Minute
	}
	if opts.OTPMaxAttempts <= 0 {
		opts.OTPMaxAttempts = 5
	}
	return &Service{users: users, sessions: sessions, challenges: challenges, mailer: mailer, opts: opts, log: log}
}

// CreateEmailToken creates the account on first use, stores a fresh
// challenge and sends the code and magic link to the address.
func (s *Service) CreateEmailToken(ctx context.Context, email string) (model.Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.Token{}, ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.Token{}, ErrInvalidEmail
	}

	u, err := s.users.GetOrCreateByEmail(ctx, email)
	if err != nil {
		return model.Token{}, fmt.Errorf("load user: %w", err)
	}

	code, err := utils.NewOTP()
	if err != nil {
		return model.Token{}, err
	}
	secret, err := utils.NewLinkSecret()
	if err != nil {
		return model.Token{}, err
	}
	codeHash, err := utils.HashOTP(code, s.opts.BcryptCost)
	if err != nil {
		return model.Token{}, err
	}

	expire := time.Now().UTC().Add(s.opts.OTPTTL)
	if err := s.challenges.Put(ctx, repository.Challenge{
		UserID:     u.ID,
		CodeHash:   codeHash,
		SecretHash: utils.HashToken(secret),
		ExpiresAt:  expire,
	}); err != nil {
		return model.Token{}, fmt.Errorf("store challenge: %w", err)
	}

	msg := EmailToken{UserID: u.ID, Email: u.Email, Code: code, MagicURL: s.magicURL(u.ID, secret), Expire: expire}
	if err := s.mailer.SendEmailToken(ctx, msg); err != nil {
		_ = s.challenges.Delete(ctx, u.ID)
		return model.Token{}, fmt.Errorf("send email token: %w", err)
	}

	s.log.Info().Str("user_id", u.ID).Msg("email token issued")
	return model.Token{UserID: u.ID, Expire: expire}, nil
}

// CreateSession exchanges the emailed one-time code for a session.
func (s *Service) CreateSession(ctx context.Context, userID, code string) (model.Session, error) {
	return s.complete(ctx, userID, func(c repository.Challenge) bool {
		return utils.VerifyOTP(c.CodeHash, strings.TrimSpace(code))
	})
}

// CreateMagicURLSession exchanges the secret carried by a magic link for a
// session.
func (s *Service) CreateMagicURLSession(ctx context.Context, userID, secret string) (model.Session, error) {
	return s.complete(ctx, userID, func(c repository.Challenge) bool {
		got := utils.HashToken(secret)
		return subtle.ConstantTimeCompare([]byte(got), []byte(c.SecretHash)) == 1
	})
}

func (s *Service) complete(ctx context.Context, userID string, verify func(repository.Challenge) bool) (model.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return model.Session{}, ErrInvalidToken
	}
	c, err := s.challenges.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Session{}, ErrInvalidToken
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("load challenge: %w", err)
	}
	if !verify(c) {
		n, err := s.challenges.IncrAttempts(ctx, userID)
		if err == nil && n >= s.opts.OTPMaxAttempts {
			_ = s.challenges.Delete(ctx, userID)
			s.log.Warn().Str("user_id", userID).Int("attempts", n).Msg("challenge dropped after repeated failures")
		}
		return model.Session{}, ErrInvalidToken
	}
	// single use
	if err := s.challenges.Delete(ctx, userID); err != nil {
		return model.Session{}, fmt.Errorf("consume challenge: %w", err)
	}
	return s.issue(ctx, userID)
}

func (s *Service) issue(ctx context.Context, userID string) (model.Session, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, ErrInvalidToken
		}
		return model.Session{}, fmt.Errorf("load user: %w", err)
	}
	sid := uuid.NewString()
	access, err := utils.NewAccessToken(s.opts.JWTSecret, userID, sid, s.opts.AccessTTLMin)
	if err != nil {
		return model.Session{}, err
	}
	refresh, err := utils.NewRefreshToken(s.opts.RefreshTTLDays)
	if err != nil {
		return model.Session{}, err
	}
	if err := s.sessions.Create(ctx, sid, userID, utils.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return model.Session{}, fmt.Errorf("save session: %w", err)
	}
	return model.Session{
		ID:             sid,
		UserID:         userID,
		AccessToken:    access.Token,
		AccessExpires:  access.Exp,
		RefreshToken:   refresh.Raw,
		RefreshExpires: refresh.Exp,
	}, nil
}

// Get returns the principal of a live session.  ErrUnauthorized covers a
// missing, malformed, expired or revoked token; any other error means the
// backing stores could not answer.
func (s *Service) Get(ctx context.Context, accessToken string) (model.User, error) {
	userID, sid, err := s.parse(accessToken)
	if err != nil {
		return model.User{}, err
	}
	owner, err := s.sessions.Active(ctx, sid)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUnauthorized
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load session: %w", err)
	}
	if owner != userID {
		return model.User{}, ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUnauthorized
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// DeleteSession revokes the session behind accessToken.
func (s *Service) DeleteSession(ctx context.Context, accessToken string) error {
	_, sid, err := s.parse(accessToken)
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, sid); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// DeleteSessions revokes every session of the user behind accessToken.
func (s *Service) DeleteSessions(ctx context.Context, accessToken string) error {
	u, err := s.Get(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := s.sessions.RevokeAllForUser(ctx, u.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info().Str("user_id", u.ID).Msg("all sessions revoked")
	return nil
}

// Refresh rotates a refresh token: the old session is revoked and a new one
// issued for the same user.
func (s *Service) Refresh(ctx context.Context, refreshRaw string) (model.Session, error) {
	refreshRaw = strings.TrimSpace(refreshRaw)
	if refreshRaw == "" {
		return model.Session{}, ErrUnauthorized
	}
	sid, userID, err := s.sessions.ByRefreshHash(ctx, utils.HashToken(refreshRaw))
	if errors.Is(err, repository.ErrNotFound) {
		return model.Session{}, ErrUnauthorized
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("load session: %w", err)
	}
	if err := s.sessions.Revoke(ctx, sid); err != nil {
		return model.Session{}, fmt.Errorf("revoke session: %w", err)
	}
	return s.issue(ctx, userID)
}

func (s *Service) parse(accessToken string) (string, string, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return "", "", ErrUnauthorized
	}
	userID, sid, err := utils.ParseAccessToken(s.opts.JWTSecret, accessToken)
	if err != nil {
		return "", "", ErrUnauthorized
	}
	return userID, sid, nil
}

func (s *Service) magicURL(userID, secret string) string {
	base := s.opts.MagicURLBase
	if base == "" {
		base = "movies://auth"
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("userId", userID)
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	return u.String()
}

// LogMailer writes login notifications to the log instead of sending them.
// The code and magic link are only included when Reveal is set, which
// should be limited to local development.
type LogMailer struct {
	Log    zerolog.Logger
	Reveal bool
}

func (m LogMailer) SendEmailToken(_ context.Context, msg EmailToken) error {
	ev := m.Log.Info().
		Str("user_id", msg.UserID).
		Str("email", msg.Email).
		Time("expire", msg.Expire)
	if m.Reveal {
		ev = ev.Str("code", msg.Code).Str("magic_url", msg.MagicURL)
	}
	ev.Msg("email token (log mailer)")
	return nil
}
