package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpspetcare/petcare-backend/pkg/db/models"
	pkgerrors "github.com/mpspetcare/petcare-backend/pkg/errors"
)

// Line is one (product, quantity) pair of a reservation or release.
type Line struct {
	ProductID uuid.UUID
	Qty       int
}

// Reserve atomically decrements stock for every line inside the caller's
// transaction. Each decrement is a conditional update ("subtract N only if
// current >= N"), so concurrent checkouts can never drive a counter negative.
// On the first line that cannot be satisfied an error is returned and the
// surrounding transaction rollback undoes the decrements already applied,
// leaving no partial reservation observable.
func Reserve(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no lines to reserve")
	}

	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Qty < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE inventory_items
			SET stock_qty = stock_qty - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ? AND stock_qty >= ?
		`, line.Qty, line.ProductID, line.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
		}
		if res.RowsAffected == 0 {
			return classifyReserveFailure(ctx, tx, line)
		}
	}
	return nil
}

// Release atomically returns stock for every line. Callers must guarantee a
// single release per order; the order state machine gates this behind a
// transition that can only be won once.
func Release(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}

	for _, line := range lines {
		if line.Qty < 1 {
			continue
		}
		res := tx.WithContext(ctx).Exec(`
			UPDATE inventory_items
			SET stock_qty = stock_qty + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ?
		`, line.Qty, line.ProductID)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
		}
	}
	return nil
}

// StockFor reads the current counter, mainly for diagnostics and tests.
func StockFor(ctx context.Context, db *gorm.DB, productID uuid.UUID) (int, error) {
	var item models.InventoryItem
	err := db.WithContext(ctx).Where("product_id = ?", productID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return item.StockQty, nil
}

func classifyReserveFailure(ctx context.Context, tx *gorm.DB, line Line) error {
	var item models.InventoryItem
	err := tx.WithContext(ctx).Where("product_id = ?", line.ProductID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product has no inventory record").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect inventory item")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for product").
		WithDetails(map[string]any{
			"product_id": line.ProductID,
			"requested":  line.Qty,
			"available":  item.StockQty,
		})
}
