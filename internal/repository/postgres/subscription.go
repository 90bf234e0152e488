package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hostbay/sitehost-api/internal/model"
	"github.com/hostbay/sitehost-api/internal/repository"
)

type subscriptionRepository struct {
	BaseRepository
}

func NewSubscriptionRepository(base BaseRepository) repository.SubscriptionRepository {
	return &subscriptionRepository{base}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, owner_id, site_id, plan, status, start_date, end_date,
			amount, auto_renew, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = sub.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.OwnerID,
		sub.SiteID,
		sub.Plan,
		sub.Status,
		sub.StartDate,
		sub.EndDate,
		sub.Amount,
		sub.AutoRenew,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetActiveBySite(ctx context.Context, siteID uuid.UUID) (*model.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE site_id = $1 AND status = $2
		ORDER BY end_date DESC
		LIMIT 1
	`

	var sub model.Subscription
	if err := r.db.GetContext(ctx, &sub, query, siteID, model.SubscriptionStatusActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetLatestBySite(ctx context.Context, siteID uuid.UUID) (*model.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE site_id = $1
		ORDER BY end_date DESC
		LIMIT 1
	`

	var sub model.Subscription
	if err := r.db.GetContext(ctx, &sub, query, siteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query,
		model.SubscriptionStatusExpired, now, id, model.SubscriptionStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to mark subscription expired: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *subscriptionRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE status = $1 AND end_date >= $2 AND end_date < $3
		ORDER BY end_date ASC
	`

	var subs []*model.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, model.SubscriptionStatusActive, from, to); err != nil {
		return nil, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}
	return subs, nil
}

// Renew is the one write path that spans both tables: it resolves the
// request, retires the replaced subscription and inserts the new one in
// a single transaction. The active row is locked FOR UPDATE and checked
// against what the approver observed, so a concurrent approval for the
// same site fails with ErrConflict instead of double-charging.
func (r *subscriptionRepository) Renew(ctx context.Context, request *model.SubscriptionRequest, approverID uuid.UUID, now time.Time, sub *model.Subscription, expectedActiveID *uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		resolve := `
			UPDATE subscription_requests
			SET status = $1, approved_by = $2, approved_date = $3, updated_at = $3
			WHERE id = $4 AND status = $5
		`
		result, err := tx.ExecContext(ctx, resolve,
			model.RequestStatusApproved, approverID, now, request.ID, model.RequestStatusPending)
		if err != nil {
			return fmt.Errorf("failed to approve request: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrAlreadyResolved
		}

		var activeID uuid.UUID
		lock := `
			SELECT id FROM subscriptions
			WHERE site_id = $1 AND status = $2
			ORDER BY end_date DESC
			LIMIT 1
			FOR UPDATE
		`
		err = tx.GetContext(ctx, &activeID, lock, request.SiteID, model.SubscriptionStatusActive)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if expectedActiveID != nil {
				return repository.ErrConflict
			}
		case err != nil:
			return fmt.Errorf("failed to lock active subscription: %w", err)
		default:
			if expectedActiveID == nil || *expectedActiveID != activeID {
				return repository.ErrConflict
			}
			cancel := `
				UPDATE subscriptions
				SET status = $1, updated_at = $2
				WHERE id = $3
			`
			if _, err := tx.ExecContext(ctx, cancel, model.SubscriptionStatusCancelled, now, activeID); err != nil {
				return fmt.Errorf("failed to cancel active subscription: %w", err)
			}
		}

		if sub.ID == uuid.Nil {
			sub.ID = uuid.New()
		}
		sub.CreatedAt = now
		sub.UpdatedAt = now

		insert := `
			INSERT INTO subscriptions (
				id, owner_id, site_id, plan, status, start_date, end_date,
				amount, auto_renew, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err = tx.ExecContext(ctx, insert,
			sub.ID,
			sub.OwnerID,
			sub.SiteID,
			sub.Plan,
			sub.Status,
			sub.StartDate,
			sub.EndDate,
			sub.Amount,
			sub.AutoRenew,
			sub.CreatedAt,
			sub.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create renewal subscription: %w", err)
		}

		request.Status = model.RequestStatusApproved
		request.ApprovedBy = &approverID
		request.ApprovedDate = &now
		return nil
	})
}
