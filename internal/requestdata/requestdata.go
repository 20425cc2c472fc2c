package requestdata

import (
	"context"

	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/permissions"
)

type contextKey struct{}

var requestDataKey = contextKey{}

// RequestData is the authenticated actor attached to every request context.
// The role travels with the identity so that the permission matrix can be
// consulted without an extra lookup on each mutation.
type RequestData struct {
	TokenString string
	UserID      uuid.UUID
	UserName    string
	Role        permissions.Role
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}
