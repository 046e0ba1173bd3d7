package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpspetcare/petcare-backend/internal/inventory"
	"github.com/mpspetcare/petcare-backend/internal/products"
	"github.com/mpspetcare/petcare-backend/pkg/db/models"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	pkgerrors "github.com/mpspetcare/petcare-backend/pkg/errors"
	"github.com/mpspetcare/petcare-backend/pkg/logger"
	"github.com/mpspetcare/petcare-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns order creation and every lifecycle mutation.
type Service struct {
	repo          Repository
	products      *products.Repository
	tx            txRunner
	log           *logger.Logger
	shippingCents int
}

// NewService builds the order service with its required collaborators.
func NewService(repo Repository, productsRepo *products.Repository, tx txRunner, log *logger.Logger, shippingCents int) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:          repo,
		products:      productsRepo,
		tx:            tx,
		log:           log,
		shippingCents: shippingCents,
	}, nil
}

// Create places an order: catalog prices are snapshotted onto the lines, stock
// is reserved for every line in the same transaction, and the first history
// event is appended. Any failure rolls the whole thing back.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"payment_method": input.PaymentMethod})
	}

	ids := make([]uuid.UUID, 0, len(input.Lines))
	reservations := make([]inventory.Line, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be at least 1").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		ids = append(ids, line.ProductID)
		reservations = append(reservations, inventory.Line{ProductID: line.ProductID, Qty: line.Qty})
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   method,
		ShippingCents:   s.shippingCents,
		Status:          enums.OrderStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalog, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
		if err != nil {
			return err
		}

		lines := make([]models.OrderLine, 0, len(input.Lines))
		total := s.shippingCents
		for _, line := range input.Lines {
			product := catalog[line.ProductID]
			lines = append(lines, models.OrderLine{
				ID:             uuid.New(),
				OrderID:        order.ID,
				ProductID:      product.ID,
				Name:           product.Name,
				ImageURL:       product.ImageURL,
				UnitPriceCents: product.PriceCents,
				Qty:            line.Qty,
			})
			total += product.PriceCents * line.Qty
		}
		order.TotalCents = total

		if err := inventory.Reserve(ctx, tx, reservations); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := repo.CreateLines(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order lines")
		}
		order.Lines = lines
		return repo.AppendStatusEvent(ctx, order.ID, enums.OrderStatusPending, "order placed")
	})
	if err != nil {
		return nil, err
	}

	ctx = s.log.WithOrderID(ctx, order.ID.String())
	s.log.Info(ctx, "order created")
	return order, nil
}

// Get returns the full aggregate. Non-admin callers only see their own orders.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
	}
	return order, nil
}

// ListMine pages through the caller's own orders.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.repo.ListByUser(ctx, userID, params)
}

// ListAll pages through every order. Admin only; the route enforces the role.
func (s *Service) ListAll(ctx context.Context, params pagination.Params) (*OrderList, error) {
	return s.repo.ListAll(ctx, params)
}

// UpdateStatus applies an admin-driven lifecycle move and appends history.
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, note string) (*models.Order, error) {
	if target == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the cancel operation to cancel an order")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := ValidateTransition(order.Status, target); err != nil {
			return err
		}

		claimed, err := repo.AdvanceStatus(ctx, orderID, order.Status, target)
		if err != nil {
			return err
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition not allowed").
				WithDetails(map[string]any{"from": order.Status, "to": target})
		}

		if target == enums.OrderStatusDelivered {
			now := time.Now().UTC()
			if err := repo.UpdateOrder(ctx, orderID, map[string]any{"delivered_at": &now}); err != nil {
				return err
			}
		}
		return repo.AppendStatusEvent(ctx, orderID, target, note)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.log.WithOrderID(ctx, orderID.String())
	s.log.Info(ctx, "order status updated")
	return s.repo.FindByID(ctx, orderID)
}

// Cancel moves a pending order to cancelled and puts every reserved unit back.
// The conditional status flip guarantees the release runs at most once even
// when the owner and an admin race each other.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.Admin() && order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
		}
		if err := ValidateTransition(order.Status, enums.OrderStatusCancelled); err != nil {
			return err
		}

		claimed, err := repo.AdvanceStatus(ctx, orderID, enums.OrderStatusPending, enums.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition not allowed").
				WithDetails(map[string]any{"from": order.Status, "to": enums.OrderStatusCancelled})
		}

		releases := make([]inventory.Line, 0, len(order.Lines))
		for _, line := range order.Lines {
			releases = append(releases, inventory.Line{ProductID: line.ProductID, Qty: line.Qty})
		}
		if err := inventory.Release(ctx, tx, releases); err != nil {
			return err
		}
		return repo.AppendStatusEvent(ctx, orderID, enums.OrderStatusCancelled, "order cancelled")
	})
	if err != nil {
		return nil, err
	}

	ctx = s.log.WithOrderID(ctx, orderID.String())
	s.log.Info(ctx, "order cancelled")
	return s.repo.FindByID(ctx, orderID)
}
