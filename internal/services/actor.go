package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/framepoint/framepoint-backend/internal/permissions"
	"github.com/framepoint/framepoint-backend/internal/platform/apierr"
	"github.com/framepoint/framepoint-backend/internal/requestdata"
)

// actorFrom pulls the authenticated actor off the context. Services call
// this instead of trusting handler-supplied ids.
func actorFrom(ctx context.Context) (*requestdata.RequestData, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.New(http.StatusUnauthorized, "not_authenticated", fmt.Errorf("no authenticated user on context"))
	}
	return rd, nil
}

func requirePermission(ctx context.Context, action permissions.Action) (*requestdata.RequestData, error) {
	rd, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !permissions.CanPerform(rd.Role, action) {
		return nil, apierr.Forbidden("permission_denied", fmt.Errorf("role %q may not perform %s", rd.Role, action))
	}
	return rd, nil
}
