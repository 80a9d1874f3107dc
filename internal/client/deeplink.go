package client

import (
	"errors"
	"net/url"
	"strings"
)

// ErrBadCallback is returned for a magic link callback without both
// parameters.
var ErrBadCallback = errors.New("callback URL must carry userId and secret")

// ParseCallback extracts the challenge id and secret from a magic link
// callback.  Both app deep links (movies://auth?userId=U1&secret=S1) and web
// URLs (https://host/?userId=U1&secret=S1) are accepted; parameters in the
// fragment are used when the query has none.
func ParseCallback(raw string) (userID, secret string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", ErrBadCallback
	}
	q := u.Query()
	if q.Get("userId") == "" && u.Fragment != "" {
		if fq, ferr := url.ParseQuery(u.Fragment); ferr == nil {
			q = fq
		}
	}
	userID, secret = q.Get("userId"), q.Get("secret")
	if userID == "" || secret == "" {
		return "", "", ErrBadCallback
	}
	return userID, secret, nil
}
