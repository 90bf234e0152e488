// Package memory provides an in-process implementation of the
// repository interfaces, used by tests and local development. Unlike
// the postgres implementation its renewal path is not transactional,
// so it reports ErrPartialRenewal when the replacement write fails
// after the request was resolved.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hostbay/sitehost-api/internal/model"
	"github.com/hostbay/sitehost-api/internal/repository"
)

// Store holds all collections behind one lock. The repository views
// returned by Owners, Sites, Subscriptions and Requests share it.
type Store struct {
	mu sync.RWMutex

	owners map[uuid.UUID]*model.Owner
	sites  map[uuid.UUID]*model.Site
	subs   map[uuid.UUID]*model.Subscription
	reqs   map[uuid.UUID]*model.SubscriptionRequest

	// FailRenewalInsert makes the next Renew fail after resolving the
	// request, exercising the partial-failure path.
	FailRenewalInsert bool
}

func NewStore() *Store {
	return &Store{
		owners: make(map[uuid.UUID]*model.Owner),
		sites:  make(map[uuid.UUID]*model.Site),
		subs:   make(map[uuid.UUID]*model.Subscription),
		reqs:   make(map[uuid.UUID]*model.SubscriptionRequest),
	}
}

func (s *Store) Owners() repository.OwnerRepository                 { return ownerView{s} }
func (s *Store) Sites() repository.SiteRepository                   { return siteView{s} }
func (s *Store) Subscriptions() repository.SubscriptionRepository   { return subView{s} }
func (s *Store) Requests() repository.SubscriptionRequestRepository { return reqView{s} }

// Seed helpers

func (s *Store) AddOwner(owner *model.Owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[owner.ID] = owner
}

func (s *Store) AddSite(site *model.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.ID] = site
}

type ownerView struct{ *Store }

func (v ownerView) Get(_ context.Context, id uuid.UUID) (*model.Owner, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	owner, ok := v.owners[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return owner, nil
}

func (v ownerView) GetByEmail(_ context.Context, email string) (*model.Owner, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, owner := range v.owners {
		if strings.EqualFold(owner.Email, email) {
			return owner, nil
		}
	}
	return nil, repository.ErrNotFound
}

type siteView struct{ *Store }

func (v siteView) GetBySlug(_ context.Context, slug string) (*model.Site, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, site := range v.sites {
		if site.Slug == slug {
			return site, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v siteView) GetByOwner(_ context.Context, ownerID uuid.UUID) (*model.Site, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, site := range v.sites {
		if site.OwnerID == ownerID {
			return site, nil
		}
	}
	return nil, repository.ErrNotFound
}

type subView struct{ *Store }

func (v subView) Create(_ context.Context, sub *model.Subscription) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = sub.CreatedAt
	v.subs[sub.ID] = sub
	return nil
}

func (s *Store) activeBySiteLocked(siteID uuid.UUID) *model.Subscription {
	var active *model.Subscription
	for _, sub := range s.subs {
		if sub.SiteID != siteID || sub.Status != model.SubscriptionStatusActive {
			continue
		}
		if active == nil || sub.EndDate.After(active.EndDate) {
			active = sub
		}
	}
	return active
}

func (v subView) GetActiveBySite(_ context.Context, siteID uuid.UUID) (*model.Subscription, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	active := v.activeBySiteLocked(siteID)
	if active == nil {
		return nil, repository.ErrNotFound
	}
	return active, nil
}

func (v subView) GetLatestBySite(_ context.Context, siteID uuid.UUID) (*model.Subscription, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var latest *model.Subscription
	for _, sub := range v.subs {
		if sub.SiteID != siteID {
			continue
		}
		if latest == nil || sub.EndDate.After(latest.EndDate) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (v subView) MarkExpired(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	sub, ok := v.subs[id]
	if !ok || sub.Status != model.SubscriptionStatusActive {
		return false, nil
	}
	sub.Status = model.SubscriptionStatusExpired
	sub.UpdatedAt = now
	return true, nil
}

func (v subView) ListExpiringBetween(_ context.Context, from, to time.Time) ([]*model.Subscription, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []*model.Subscription
	for _, sub := range v.subs {
		if sub.Status != model.SubscriptionStatusActive {
			continue
		}
		if !sub.EndDate.Before(from) && sub.EndDate.Before(to) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (v subView) Renew(_ context.Context, request *model.SubscriptionRequest, approverID uuid.UUID,
	now time.Time, sub *model.Subscription, expectedActiveID *uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	stored, ok := v.reqs[request.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != model.RequestStatusPending {
		return repository.ErrAlreadyResolved
	}

	active := v.activeBySiteLocked(request.SiteID)
	switch {
	case active == nil && expectedActiveID != nil:
		return repository.ErrConflict
	case active != nil && (expectedActiveID == nil || *expectedActiveID != active.ID):
		return repository.ErrConflict
	}

	stored.Status = model.RequestStatusApproved
	stored.ApprovedBy = &approverID
	stored.ApprovedDate = &now
	stored.UpdatedAt = now
	request.Status = stored.Status
	request.ApprovedBy = stored.ApprovedBy
	request.ApprovedDate = stored.ApprovedDate

	if v.FailRenewalInsert {
		v.Store.FailRenewalInsert = false
		return repository.ErrPartialRenewal
	}

	if active != nil {
		active.Status = model.SubscriptionStatusCancelled
		active.UpdatedAt = now
	}

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now
	v.subs[sub.ID] = sub
	return nil
}

type reqView struct{ *Store }

func (v reqView) Create(_ context.Context, req *model.SubscriptionRequest) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	v.reqs[req.ID] = req
	return nil
}

func (v reqView) Get(_ context.Context, id uuid.UUID) (*model.SubscriptionRequest, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	req, ok := v.reqs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return req, nil
}

func (v reqView) ListByStatus(_ context.Context, status string) ([]*model.SubscriptionRequest, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []*model.SubscriptionRequest
	for _, req := range v.reqs {
		if req.Status == status {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestDate.After(out[j].RequestDate) })
	return out, nil
}

func (v reqView) MarkRejected(_ context.Context, id uuid.UUID, reason string, now time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	req, ok := v.reqs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if req.Status != model.RequestStatusPending {
		return repository.ErrAlreadyResolved
	}
	req.Status = model.RequestStatusRejected
	req.RejectionReason = &reason
	req.UpdatedAt = now
	return nil
}
