package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hostbay/sitehost-api/internal/model"
	"github.com/hostbay/sitehost-api/internal/repository"
)

type siteRepository struct {
	BaseRepository
}

func NewSiteRepository(base BaseRepository) repository.SiteRepository {
	return &siteRepository{base}
}

func (r *siteRepository) GetBySlug(ctx context.Context, slug string) (*model.Site, error) {
	query := `
		SELECT id, owner_id, slug, name, is_active, created_at, updated_at
		FROM sites
		WHERE slug = $1
	`

	var site model.Site
	if err := r.db.GetContext(ctx, &site, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get site by slug: %w", err)
	}

	return &site, nil
}

func (r *siteRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*model.Site, error) {
	query := `
		SELECT id, owner_id, slug, name, is_active, created_at, updated_at
		FROM sites
		WHERE owner_id = $1
	`

	var site model.Site
	if err := r.db.GetContext(ctx, &site, query, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get site by owner: %w", err)
	}

	return &site, nil
}
