package adoptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpspetcare/petcare-backend/pkg/db/models"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	pkgerrors "github.com/mpspetcare/petcare-backend/pkg/errors"
	"github.com/mpspetcare/petcare-backend/pkg/logger"
)

const competitorNote = "Pet has been adopted by another user"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the adoption workflow: many buyers race to claim one pet, at
// most one claim ever wins. The pet row's conditional status update is the
// same atomic-claim primitive checkout uses for stock.
type Service struct {
	db  *gorm.DB
	tx  txRunner
	log *logger.Logger
}

func NewService(db *gorm.DB, tx txRunner, log *logger.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{db: db, tx: tx, log: log}, nil
}

// RequestInput is the application form a prospective adopter submits.
type RequestInput struct {
	PetID   uuid.UUID `json:"pet_id" validate:"required"`
	Message string    `json:"message"`
}

// Request files a claim on a pet. Allowed while the pet is available or has
// other pending claims; an adopted pet takes no further requests.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, input RequestInput) (*models.AdoptionRequest, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	request := &models.AdoptionRequest{
		ID:      uuid.New(),
		PetID:   input.PetID,
		UserID:  userID,
		Message: input.Message,
		Status:  enums.AdoptionStatusPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var pet models.Pet
		if err := tx.WithContext(ctx).First(&pet, "id = ?", input.PetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pet")
		}
		if pet.Status == enums.PetStatusAdopted {
			return pkgerrors.New(pkgerrors.CodeValidation, "pet is not available for adoption")
		}

		var existing int64
		err := tx.WithContext(ctx).
			Model(&models.AdoptionRequest{}).
			Where("pet_id = ? AND user_id = ? AND status = ?", input.PetID, userID, enums.AdoptionStatusPending).
			Count(&existing).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing request")
		}
		if existing > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "a pending request for this pet already exists")
		}

		if err := tx.WithContext(ctx).Create(request).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create adoption request")
		}

		// First claim moves the pet to pending; later claims leave it alone.
		return tx.WithContext(ctx).
			Model(&models.Pet{}).
			Where("id = ? AND status = ?", input.PetID, enums.PetStatusAvailable).
			Update("status", enums.PetStatusPending).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithField(ctx, "pet_id", input.PetID.String()), "adoption request filed")
	return request, nil
}

// Approve grants one claim. The conditional pet update is the exclusive-claim
// gate: whichever approval flips the row to adopted wins, every racing
// approval fails, and all competing pending requests are auto-rejected.
func (s *Service) Approve(ctx context.Context, requestID uuid.UUID, note string) (*models.AdoptionRequest, error) {
	var request models.AdoptionRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := loadRequest(ctx, tx, requestID, &request); err != nil {
			return err
		}
		if request.Status != enums.AdoptionStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "adoption request already reviewed").
				WithDetails(map[string]any{"status": request.Status})
		}

		claim := tx.WithContext(ctx).
			Model(&models.Pet{}).
			Where("id = ? AND status IN ?", request.PetID, []enums.PetStatus{enums.PetStatusAvailable, enums.PetStatusPending}).
			Updates(map[string]any{
				"status":   enums.PetStatusAdopted,
				"owner_id": request.UserID,
			})
		if claim.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, claim.Error, "claim pet")
		}
		if claim.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "pet has already been adopted")
		}

		now := time.Now().UTC()
		if err := reviewRequest(ctx, tx, requestID, enums.AdoptionStatusApproved, note, now); err != nil {
			return err
		}

		err := tx.WithContext(ctx).
			Model(&models.AdoptionRequest{}).
			Where("pet_id = ? AND id <> ? AND status = ?", request.PetID, requestID, enums.AdoptionStatusPending).
			Updates(map[string]any{
				"status":      enums.AdoptionStatusRejected,
				"admin_note":  competitorNote,
				"reviewed_at": &now,
			}).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject competing requests")
		}

		request.Status = enums.AdoptionStatusApproved
		request.ReviewedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithField(ctx, "pet_id", request.PetID.String()), "adoption request approved")
	return &request, nil
}

// Reject declines one claim. When no other pending claim remains the pet goes
// back to available.
func (s *Service) Reject(ctx context.Context, requestID uuid.UUID, note string) (*models.AdoptionRequest, error) {
	var request models.AdoptionRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := loadRequest(ctx, tx, requestID, &request); err != nil {
			return err
		}
		if request.Status != enums.AdoptionStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "adoption request already reviewed").
				WithDetails(map[string]any{"status": request.Status})
		}

		now := time.Now().UTC()
		if err := reviewRequest(ctx, tx, requestID, enums.AdoptionStatusRejected, note, now); err != nil {
			return err
		}

		var remaining int64
		err := tx.WithContext(ctx).
			Model(&models.AdoptionRequest{}).
			Where("pet_id = ? AND status = ?", request.PetID, enums.AdoptionStatusPending).
			Count(&remaining).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count pending requests")
		}
		if remaining == 0 {
			err := tx.WithContext(ctx).
				Model(&models.Pet{}).
				Where("id = ? AND status = ?", request.PetID, enums.PetStatusPending).
				Update("status", enums.PetStatusAvailable).Error
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reopen pet")
			}
		}

		request.Status = enums.AdoptionStatusRejected
		request.ReviewedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithField(ctx, "pet_id", request.PetID.String()), "adoption request rejected")
	return &request, nil
}

// ListMine returns the caller's requests, newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]models.AdoptionRequest, error) {
	var requests []models.AdoptionRequest
	err := s.db.WithContext(ctx).
		Preload("Pet").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list adoption requests")
	}
	return requests, nil
}

// ListAll returns every request, optionally filtered by status. Admin only.
func (s *Service) ListAll(ctx context.Context, status *enums.AdoptionStatus) ([]models.AdoptionRequest, error) {
	query := s.db.WithContext(ctx).Preload("Pet").Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var requests []models.AdoptionRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list adoption requests")
	}
	return requests, nil
}

func loadRequest(ctx context.Context, tx *gorm.DB, id uuid.UUID, out *models.AdoptionRequest) error {
	if err := tx.WithContext(ctx).First(out, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "adoption request not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load adoption request")
	}
	return nil
}

func reviewRequest(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.AdoptionStatus, note string, now time.Time) error {
	res := tx.WithContext(ctx).
		Model(&models.AdoptionRequest{}).
		Where("id = ? AND status = ?", id, enums.AdoptionStatusPending).
		Updates(map[string]any{
			"status":      status,
			"admin_note":  note,
			"reviewed_at": &now,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "review adoption request")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "adoption request already reviewed")
	}
	return nil
}
