package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

type sessionKey struct{}

func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFrom(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*models.Session)
	return s, ok && s != nil
}

// ContextSession reads the session a transport placed on the request context.
type ContextSession struct{}

func (ContextSession) CurrentSession(ctx context.Context) (*models.Session, error) {
	s, _ := SessionFrom(ctx)
	return s, nil
}

// TokenSession is the client-side view of a token issued by the server. The
// signature is checked by the server on every call, so here the claims are
// only decoded; an expired or unreadable token means no session.
type TokenSession struct {
	Token string
	Now   func() time.Time
}

func (t TokenSession) CurrentSession(context.Context) (*models.Session, error) {
	if t.Token == "" {
		return nil, nil
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.Token, claims); err != nil {
		return nil, nil
	}

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now()) {
		return nil, nil
	}
	if claims.UserID == "" {
		return nil, nil
	}
	return &models.Session{UserID: claims.UserID, Email: claims.Email}, nil
}
