// Package credentials obtains the bearer tokens attached to object storage
// requests. Sources talk to an identity provider; Cache shares one token
// between events until it is about to expire.
package credentials

import (
	"context"
	"errors"
)

// Source yields a bearer token suitable for an "Authorization: Bearer" header.
// Token freshness is the source's concern; wrap it in a Cache to reuse tokens.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// ErrNoToken is returned when a source produced an empty token.
var ErrNoToken = errors.New("credential source returned no token")

// Static always returns the same token. Intended for development setups
// where the storage gateway accepts a fixed key.
type Static string

// Token implements Source.
func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}
