package access

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/hostbay/sitehost-api/internal/model"
	"github.com/hostbay/sitehost-api/internal/repository"
	"github.com/hostbay/sitehost-api/internal/service/subscription"
	"github.com/hostbay/sitehost-api/internal/service/verification"
	"github.com/hostbay/sitehost-api/pkg/metrics"
)

// Decision kinds for a public site request.
type DecisionKind int

const (
	// DecisionServe: render the site.
	DecisionServe DecisionKind = iota
	// DecisionNotFound: slug unknown or site deactivated. The public
	// caller gets no distinction between the two.
	DecisionNotFound
	// DecisionBlockedUnverified: owner's verification grace period ran out.
	DecisionBlockedUnverified
	// DecisionBlockedExpired: subscription history exists, nothing active.
	DecisionBlockedExpired
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionServe:
		return "serve"
	case DecisionNotFound:
		return "not_found"
	case DecisionBlockedUnverified:
		return "blocked_unverified"
	case DecisionBlockedExpired:
		return "blocked_expired"
	}
	return "unknown"
}

// Decision is the outcome of resolving a slug. Site is set for Serve;
// Owner is set for BlockedUnverified so the owner-facing page can show
// remediation detail.
type Decision struct {
	Kind  DecisionKind
	Site  *model.Site
	Owner *model.Owner
	// Degraded marks a Serve issued because a policy lookup failed.
	Degraded bool
}

const (
	siteCacheTTL     = 30 * time.Second
	siteCacheCleanup = 5 * time.Minute
)

// Resolver decides whether a site may be served: verification first,
// then subscription state. It is read-mostly; the only write is the
// lazy expiry flip inside the lifecycle service.
type Resolver struct {
	siteRepo  repository.SiteRepository
	ownerRepo repository.OwnerRepository
	lifecycle *subscription.Service
	siteCache *cache.Cache

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewResolver(siteRepo repository.SiteRepository, ownerRepo repository.OwnerRepository,
	lifecycle *subscription.Service, logger zerolog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		siteRepo:  siteRepo,
		ownerRepo: ownerRepo,
		lifecycle: lifecycle,
		siteCache: cache.New(siteCacheTTL, siteCacheCleanup),
		logger:    logger,
		metrics:   m,
	}
}

// Resolve maps a slug to an access decision.
//
// Lookup failures in the owner or subscription steps degrade to Serve:
// when the policy engine itself is broken, availability wins over
// enforcement. Every degraded serve is logged at error level and
// counted, never swallowed.
func (r *Resolver) Resolve(ctx context.Context, slug string, now time.Time) (*Decision, error) {
	start := time.Now()
	decision, err := r.resolve(ctx, slug, now)
	if err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.AccessDecisions.WithLabelValues(decision.Kind.String()).Inc()
		r.metrics.ResolveLatency.Observe(time.Since(start).Seconds())
	}
	return decision, nil
}

func (r *Resolver) resolve(ctx context.Context, slug string, now time.Time) (*Decision, error) {
	site, err := r.lookupSite(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &Decision{Kind: DecisionNotFound}, nil
		}
		// The site lookup has no permissive fallback: without a site
		// record there is nothing to serve.
		return nil, err
	}
	if !site.IsActive {
		return &Decision{Kind: DecisionNotFound}, nil
	}

	owner, err := r.ownerRepo.Get(ctx, site.OwnerID)
	if err != nil {
		return r.degrade(site, "owner lookup failed", err), nil
	}

	if verification.Blocked(owner, now) {
		return &Decision{Kind: DecisionBlockedUnverified, Site: site, Owner: owner}, nil
	}

	status, err := r.lifecycle.CurrentStatus(ctx, site.ID, now)
	if err != nil {
		return r.degrade(site, "subscription lookup failed", err), nil
	}

	switch status.State {
	case subscription.StateActive, subscription.StateNeverSubscribed:
		// A site with no subscription history at all is served. Flagged
		// as a product question; do not change the default here.
		return &Decision{Kind: DecisionServe, Site: site}, nil
	default:
		return &Decision{Kind: DecisionBlockedExpired, Site: site}, nil
	}
}

func (r *Resolver) degrade(site *model.Site, reason string, err error) *Decision {
	if r.metrics != nil {
		r.metrics.DegradedServes.Inc()
	}
	r.logger.Error().
		Str("event", "degraded_serve").
		Str("site_id", site.ID.String()).
		Str("slug", site.Slug).
		Str("reason", reason).
		Err(err).
		Msg("policy lookup failed, serving site permissively")
	return &Decision{Kind: DecisionServe, Site: site, Degraded: true}
}

func (r *Resolver) lookupSite(ctx context.Context, slug string) (*model.Site, error) {
	if cached, ok := r.siteCache.Get(slug); ok {
		return cached.(*model.Site), nil
	}

	site, err := r.siteRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	r.siteCache.Set(slug, site, cache.DefaultExpiration)
	return site, nil
}
