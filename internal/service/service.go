// Package service carries the business rules between the HTTP surface and
// the repository: input validation and normalization, role checks, the
// checkout retry, and catalog cache maintenance.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/cache"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/domain"
	"github.com/Shadowdev1174/Inventory-POS-WebApp/internal/store"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrAdminRequired   = errors.New("admin role required")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	catalog  cache.CatalogCache
	log      zerolog.Logger
	cacheTTL time.Duration
}

func New(repo store.Repository, catalog cache.CatalogCache, log zerolog.Logger, cacheTTL time.Duration) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Service{
		repo:     repo,
		catalog:  catalog,
		log:      log.With().Str("component", "service").Logger(),
		cacheTTL: cacheTTL,
	}
}

func (s *Service) requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.Actor{}, ErrUnauthenticated
	}
	return actor, nil
}

func (s *Service) requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if actor.Role != domain.RoleAdmin {
		return domain.Actor{}, ErrAdminRequired
	}
	return actor, nil
}

// invalidateCatalog drops cached product listings after any write that can
// change stock or catalog contents. Cache errors are logged, never surfaced.
func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentMobile, domain.PaymentCheck:
		return true
	}
	return false
}

func isRefundReason(reason string) bool {
	switch reason {
	case domain.RefundDefective, domain.RefundWrongItem, domain.RefundCustomerRequest,
		domain.RefundDamaged, domain.RefundOther:
		return true
	}
	return false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
