package middleware

import (
	"context"
	"strings"

	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/router"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
)

// Identity headers are set by the gateway in front of the service after it has
// authenticated the caller. They must never be forwarded from clients.
const (
	UserIDHeader = "X-User-ID"
	ActorHeader  = "X-Actor"
)

// Identify copies the identity headers into the context without requiring
// them.
func Identify() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		req := xcontext.HTTPRequest(ctx)
		if userID := strings.TrimSpace(req.Header.Get(UserIDHeader)); userID != "" {
			ctx = xcontext.WithRequestUserID(ctx, userID)
		}

		if actor := strings.TrimSpace(req.Header.Get(ActorHeader)); actor != "" {
			ctx = xcontext.WithActor(ctx, actor)
		}

		return ctx, nil
	}
}

func Authenticate() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		if xcontext.RequestUserID(ctx) == "" {
			return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
		}

		return ctx, nil
	}
}

func OnlyAdmin() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		if xcontext.Actor(ctx) == "" {
			return nil, errorx.New(errorx.PermissionDenied, "Only operators can do this action")
		}

		return ctx, nil
	}
}
