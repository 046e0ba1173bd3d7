package payherewebhook

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpspetcare/petcare-backend/internal/orders"
	"github.com/mpspetcare/petcare-backend/internal/payments/payhere"
	"github.com/mpspetcare/petcare-backend/pkg/db/models"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	pkgerrors "github.com/mpspetcare/petcare-backend/pkg/errors"
	"github.com/mpspetcare/petcare-backend/pkg/logger"
	"github.com/mpspetcare/petcare-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the reconciler's collaborators. Guard and Metrics are
// optional; everything else is required.
type ServiceParams struct {
	OrdersRepo        orders.Repository
	Gateway           *payhere.Client
	TransactionRunner txRunner
	Logger            *logger.Logger
	Guard             *IdempotencyGuard
	Metrics           *metrics.WebhookMetrics
}

// Service applies gateway notifications to orders idempotently. Deliveries
// are at-least-once and may arrive out of order; only the first application
// of a given outcome changes state.
type Service struct {
	ordersRepo orders.Repository
	gateway    *payhere.Client
	tx         txRunner
	log        *logger.Logger
	guard      *IdempotencyGuard
	metrics    *metrics.WebhookMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		ordersRepo: params.OrdersRepo,
		gateway:    params.Gateway,
		tx:         params.TransactionRunner,
		log:        params.Logger,
		guard:      params.Guard,
		metrics:    params.Metrics,
	}, nil
}

// Reconcile verifies and applies one notification. The returned error is nil
// for every business-level condition (unknown order, duplicate, failed
// payment) so the caller acks and the gateway stops redelivering; only a
// signature mismatch propagates as a rejection.
func (s *Service) Reconcile(ctx context.Context, n payhere.Notification) error {
	ctx = s.log.WithOrderID(ctx, n.OrderID)

	if err := s.gateway.VerifyNotification(n); err != nil {
		s.metrics.IncSignatureMismatch()
		s.log.Warn(ctx, "webhook signature mismatch")
		return err
	}

	orderID, err := uuid.Parse(n.OrderID)
	if err != nil {
		s.metrics.IncOutcome("order_not_found")
		s.log.Warn(ctx, "webhook order id is not parseable")
		return nil
	}

	if s.guard != nil {
		duplicate, guardErr := s.guard.CheckAndMark(ctx, eventID(n))
		if guardErr != nil {
			// Redis being down must not block settlement; the database
			// comparison below still prevents double application.
			s.log.Error(ctx, "idempotency guard unavailable", guardErr)
		} else if duplicate {
			s.metrics.IncOutcome("duplicate")
			s.log.Info(ctx, "webhook already processed, acknowledging")
			return nil
		}
	}

	outcome, recognized := payhere.Outcome(n.StatusCode)
	if !recognized {
		ctx = s.log.WithField(ctx, "status_code", n.StatusCode)
		s.log.Warn(ctx, "unrecognized gateway status code, treating as failed")
	}

	applied := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		if alreadyApplied(order, outcome, n.PaymentID) {
			return nil
		}

		now := time.Now().UTC()
		result := models.PaymentResult{
			Status:        outcome,
			StatusCode:    n.StatusCode,
			TransactionID: n.PaymentID,
			ReconciledAt:  now,
		}

		markPaid := outcome == enums.PaymentStatusCompleted
		if markPaid && order.Status == enums.OrderStatusPending {
			claimed, err := repo.AdvanceStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusProcessing)
			if err != nil {
				return err
			}
			if claimed {
				if err := repo.AppendStatusEvent(ctx, order.ID, enums.OrderStatusProcessing, "payment confirmed"); err != nil {
					return err
				}
			}
		}

		if err := repo.RecordPaymentResult(ctx, order.ID, result, markPaid, &now); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			// An unknown order is acknowledged so the gateway stops retrying
			// a notification no amount of redelivery can resolve.
			s.metrics.IncOutcome("order_not_found")
			s.log.Warn(ctx, "webhook references unknown order, acknowledging")
			return nil
		}
		// A store failure is not a business outcome; surface it so the
		// gateway redelivers once persistence recovers.
		if s.guard != nil {
			if delErr := s.guard.Delete(ctx, eventID(n)); delErr != nil {
				s.log.Error(ctx, "release idempotency key", delErr)
			}
		}
		s.log.Error(ctx, "webhook reconciliation failed", err)
		return err
	}

	if applied {
		s.metrics.IncOutcome(string(outcome))
		s.log.Info(ctx, "webhook reconciled")
	} else {
		s.metrics.IncOutcome("duplicate")
		s.log.Info(ctx, "webhook outcome already recorded, acknowledging")
	}
	return nil
}

// alreadyApplied reports whether the order's payment result records this exact
// outcome and transaction, i.e. the event is a redelivery.
func alreadyApplied(order *models.Order, outcome enums.PaymentStatus, transactionID string) bool {
	return order.PaymentResult != nil &&
		order.PaymentResult.Status == outcome &&
		order.PaymentResult.TransactionID == transactionID
}

func eventID(n payhere.Notification) string {
	return n.OrderID + ":" + n.StatusCode + ":" + n.PaymentID
}
