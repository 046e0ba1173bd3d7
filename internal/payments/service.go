package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mpspetcare/petcare-backend/internal/orders"
	"github.com/mpspetcare/petcare-backend/internal/payments/payhere"
	"github.com/mpspetcare/petcare-backend/pkg/db/models"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	pkgerrors "github.com/mpspetcare/petcare-backend/pkg/errors"
	"github.com/mpspetcare/petcare-backend/pkg/logger"
)

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// StatusView is the read-only projection of an order's payment state.
type StatusView struct {
	OrderID       uuid.UUID             `json:"order_id"`
	IsPaid        bool                  `json:"is_paid"`
	PaidAt        *time.Time            `json:"paid_at,omitempty"`
	PaymentResult *models.PaymentResult `json:"payment_result,omitempty"`
	Status        enums.OrderStatus     `json:"status"`
}

// Service builds gateway handoffs and serves payment status reads.
type Service struct {
	orders  orders.Repository
	users   userReader
	gateway *payhere.Client
	log     *logger.Logger
}

// NewService wires the payment initiation surface.
func NewService(ordersRepo orders.Repository, usersRepo userReader, gateway *payhere.Client, log *logger.Logger) (*Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{orders: ordersRepo, users: usersRepo, gateway: gateway, log: log}, nil
}

// Initiate builds the signed handoff for the order. It runs strictly after
// checkout has reserved stock and mutates nothing, so a failed initiation can
// simply be retried.
func (s *Service) Initiate(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*payhere.Handoff, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
	}
	if order.IsPaid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is already paid")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is cancelled")
	}

	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	contact := contactFor(user, order)

	handoff, err := s.gateway.BuildHandoff(order, contact)
	if err != nil {
		return nil, err
	}

	ctx = s.log.WithOrderID(ctx, orderID.String())
	s.log.Info(ctx, "payment handoff built")
	return handoff, nil
}

// Status returns the payment projection for the order.
func (s *Service) Status(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*StatusView, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
	}
	return &StatusView{
		OrderID:       order.ID,
		IsPaid:        order.IsPaid,
		PaidAt:        order.PaidAt,
		PaymentResult: order.PaymentResult,
		Status:        order.Status,
	}, nil
}

func contactFor(user *models.User, order *models.Order) payhere.BuyerContact {
	contact := payhere.BuyerContact{Email: user.Email}
	parts := strings.Fields(user.Name)
	if len(parts) > 0 {
		contact.FirstName = parts[0]
	}
	if len(parts) > 1 {
		contact.LastName = strings.Join(parts[1:], " ")
	}
	if user.Phone != nil {
		contact.Phone = *user.Phone
	}
	if contact.Phone == "" {
		contact.Phone = order.ShippingAddress.Phone
	}
	return contact
}
