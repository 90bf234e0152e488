package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hostbay/sitehost-api/internal/model"
	"github.com/hostbay/sitehost-api/internal/repository"
)

type ownerRepository struct {
	BaseRepository
}

func NewOwnerRepository(base BaseRepository) repository.OwnerRepository {
	return &ownerRepository{base}
}

func (r *ownerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Owner, error) {
	query := `
		SELECT id, email, name, phone, password_hash, email_verified,
			   phone_verified, created_at, updated_at
		FROM owners
		WHERE id = $1
	`

	var owner model.Owner
	if err := r.db.GetContext(ctx, &owner, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get owner: %w", err)
	}

	return &owner, nil
}

func (r *ownerRepository) GetByEmail(ctx context.Context, email string) (*model.Owner, error) {
	query := `
		SELECT id, email, name, phone, password_hash, email_verified,
			   phone_verified, created_at, updated_at
		FROM owners
		WHERE lower(email) = $1
	`

	var owner model.Owner
	if err := r.db.GetContext(ctx, &owner, query, strings.ToLower(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get owner by email: %w", err)
	}

	return &owner, nil
}
