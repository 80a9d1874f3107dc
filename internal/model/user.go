package model

import "time"

// User is the authenticated principal.  Accounts are created on the first
// email token request for an address; there is no password.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Token is the response to an email token request.  UserID doubles as the
// challenge identifier that must be presented with the one-time secret.
type Token struct {
	UserID string    `json:"userId"`
	Expire time.Time `json:"expire"`
}

// Session is issued when a challenge is completed.  AccessToken is sent as a
// Bearer token; RefreshToken can be exchanged for a new pair.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	AccessToken    string    `json:"access_token"`
	AccessExpires  time.Time `json:"access_expires"`
	RefreshToken   string    `json:"refresh_token"`
	RefreshExpires time.Time `json:"refresh_expires"`
}
