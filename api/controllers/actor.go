package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mpspetcare/petcare-backend/api/middleware"
	ordersvc "github.com/mpspetcare/petcare-backend/internal/orders"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	pkgerrors "github.com/mpspetcare/petcare-backend/pkg/errors"
)

// actorFromRequest rebuilds the authenticated caller from the context the auth
// middleware seeded.
func actorFromRequest(r *http.Request) (ordersvc.Actor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return ordersvc.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return ordersvc.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity malformed")
	}
	role, err := enums.ParseMemberRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		role = enums.MemberRoleUser
	}
	return ordersvc.Actor{UserID: userID, Role: role}, nil
}
