package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hostbay/sitehost-api/internal/model"
	"github.com/hostbay/sitehost-api/internal/repository"
)

type subscriptionRequestRepository struct {
	BaseRepository
}

func NewSubscriptionRequestRepository(base BaseRepository) repository.SubscriptionRequestRepository {
	return &subscriptionRequestRepository{base}
}

func (r *subscriptionRequestRepository) Create(ctx context.Context, req *model.SubscriptionRequest) error {
	query := `
		INSERT INTO subscription_requests (
			id, owner_id, site_id, plan, amount, payment_method,
			contact_phone, status, request_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.OwnerID,
		req.SiteID,
		req.Plan,
		req.Amount,
		req.PaymentMethod,
		req.ContactPhone,
		req.Status,
		req.RequestDate,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription request: %w", err)
	}
	return nil
}

func (r *subscriptionRequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.SubscriptionRequest, error) {
	query := `
		SELECT * FROM subscription_requests
		WHERE id = $1
	`

	var req model.SubscriptionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription request: %w", err)
	}

	return &req, nil
}

func (r *subscriptionRequestRepository) ListByStatus(ctx context.Context, status string) ([]*model.SubscriptionRequest, error) {
	query := `
		SELECT * FROM subscription_requests
		WHERE status = $1
		ORDER BY request_date DESC
	`

	var reqs []*model.SubscriptionRequest
	if err := r.db.SelectContext(ctx, &reqs, query, status); err != nil {
		return nil, fmt.Errorf("failed to list subscription requests: %w", err)
	}
	return reqs, nil
}

func (r *subscriptionRequestRepository) MarkRejected(ctx context.Context, id uuid.UUID, reason string, now time.Time) error {
	query := `
		UPDATE subscription_requests
		SET status = $1, rejection_reason = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		model.RequestStatusRejected, reason, now, id, model.RequestStatusPending)
	if err != nil {
		return fmt.Errorf("failed to reject subscription request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrAlreadyResolved
	}
	return nil
}
