package controllers

import (
	"net/http"

	"github.com/mpspetcare/petcare-backend/api/responses"
	"github.com/mpspetcare/petcare-backend/internal/payments/payhere"
	payherewebhook "github.com/mpspetcare/petcare-backend/internal/webhooks/payhere"
	"github.com/mpspetcare/petcare-backend/pkg/errors"
	"github.com/mpspetcare/petcare-backend/pkg/logger"
)

// PayHereNotify handles the gateway's server-to-server callback. The gateway
// posts a form body and retries anything that does not get a 200 back, so the
// handler only errors when the event was rejected or could not be stored.
func PayHereNotify(svc *payherewebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			responses.WriteError(r.Context(), logg, w,
				errors.Wrap(errors.CodeValidation, err, "malformed notification body"))
			return
		}

		n := payhere.Notification{
			MerchantID: r.PostFormValue("merchant_id"),
			OrderID:    r.PostFormValue("order_id"),
			Amount:     r.PostFormValue("payhere_amount"),
			Currency:   r.PostFormValue("payhere_currency"),
			StatusCode: r.PostFormValue("status_code"),
			PaymentID:  r.PostFormValue("payment_id"),
			MD5Sig:     r.PostFormValue("md5sig"),
		}

		if err := svc.Reconcile(r.Context(), n); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
