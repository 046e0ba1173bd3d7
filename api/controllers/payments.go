package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mpspetcare/petcare-backend/api/responses"
	"github.com/mpspetcare/petcare-backend/api/validators"
	"github.com/mpspetcare/petcare-backend/internal/payments"
	"github.com/mpspetcare/petcare-backend/pkg/logger"
)

type initiatePaymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

// InitiatePayment returns the signed gateway handoff for one of the caller's
// orders.
func InitiatePayment(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		handoff, err := svc.Initiate(r.Context(), body.OrderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, handoff)
	}
}

// PaymentStatus returns the payment projection for an order.
func PaymentStatus(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Status(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
