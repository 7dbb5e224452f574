package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pandeptwidyaop/classmod/internal/config"
	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/models"
	"github.com/pandeptwidyaop/classmod/internal/modelsdk"
)

// LoaderService fully loads unit collections.
type LoaderService struct {
	concurrency int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewLoaderService creates a loader. A zero RequestsPerSecond disables pacing.
func NewLoaderService(cfg config.LoaderConfig, logger *zap.Logger) *LoaderService {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &LoaderService{
		concurrency: concurrency,
		limiter:     limiter,
		logger:      logging.OrNop(logger).Named("loader"),
	}
}

// LoadAll enumerates every unit of kind and loads each one. It returns only when all units are
// loaded, or with the first error, in which case the remaining loads are cancelled. The result
// keeps the model index order.
func (s *LoaderService) LoadAll(ctx context.Context, model modelsdk.Model, kind models.UnitKind) ([]*models.Unit, error) {
	refs, err := model.ListUnits(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrLoad, kind.Label(), err)
	}

	units := make([]*models.Unit, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, ref := range refs {
		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			unit, err := model.LoadUnit(gctx, ref)
			if err != nil {
				return err
			}
			units[i] = unit
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, kind.Label(), err)
	}

	s.logger.Info(kind.Label()+" loaded", zap.Int("count", len(units)))
	return units, nil
}
