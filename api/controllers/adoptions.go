package controllers

import (
	"net/http"

	"github.com/mpspetcare/petcare-backend/api/responses"
	"github.com/mpspetcare/petcare-backend/api/validators"
	"github.com/mpspetcare/petcare-backend/internal/adoptions"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	"github.com/mpspetcare/petcare-backend/pkg/errors"
	"github.com/mpspetcare/petcare-backend/pkg/logger"
)

type reviewAdoptionRequest struct {
	Note string `json:"note"`
}

// decodeReviewBody reads the optional review note; an empty body is fine.
func decodeReviewBody(r *http.Request, body *reviewAdoptionRequest) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return validators.DecodeJSONBody(r, body)
}

// CreateAdoptionRequest files a claim on a pet for the authenticated user.
func CreateAdoptionRequest(svc *adoptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adoptions.RequestInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Request(r.Context(), actor.UserID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// ListMyAdoptions returns the caller's adoption requests, newest first.
func ListMyAdoptions(svc *adoptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requests, err := svc.ListMine(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests)
	}
}

// ListAdoptions returns every adoption request, optionally filtered by the
// status query parameter.
func ListAdoptions(svc *adoptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status *enums.AdoptionStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, err := enums.ParseAdoptionStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					errors.New(errors.CodeValidation, "unknown adoption status"))
				return
			}
			status = &parsed
		}

		requests, err := svc.ListAll(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests)
	}
}

// ApproveAdoption grants a pending request the pet and turns away the rest.
func ApproveAdoption(svc *adoptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reviewAdoptionRequest
		if err := decodeReviewBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Approve(r.Context(), requestID, body.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// RejectAdoption declines a pending request and reopens the pet when no other
// claims remain.
func RejectAdoption(svc *adoptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reviewAdoptionRequest
		if err := decodeReviewBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Reject(r.Context(), requestID, body.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}
