package extract

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/config"
	"github.com/vibedata/platform/pkg/logger"
	"github.com/vibedata/platform/pkg/pool"
)

// Coordinator enumerates enabled API sources and drives the fetcher per
// endpoint. One endpoint's failure aborts neither the source's remaining
// endpoints nor the next source.
type Coordinator struct {
	fetcher *Fetcher
	workers int
	logger  *zap.Logger
}

// Options restricts an extraction run
type Options struct {
	// API targets one source by name, ignoring its enabled flag
	API string
	// Endpoint restricts extraction to one endpoint name
	Endpoint string
}

// CoordinatorConfig tunes the coordinator
type CoordinatorConfig struct {
	// Workers bounds concurrent endpoint fetches
	Workers int
}

// NewCoordinator creates an extraction coordinator
func NewCoordinator(fetcher *Fetcher, cfg *CoordinatorConfig, log *zap.Logger) *Coordinator {
	workers := runtime.NumCPU()
	if cfg != nil && cfg.Workers > 0 {
		workers = cfg.Workers
	}
	if log == nil {
		log = logger.Get()
	}
	return &Coordinator{
		fetcher: fetcher,
		workers: workers,
		logger:  log.With(zap.String("component", "extraction_coordinator")),
	}
}

// ExtractAll fetches every endpoint of every enabled API source, or the
// targeted source when opts.API names one. The returned error is only
// non-nil for fatal configuration problems; per-endpoint failures are
// folded into the summary.
func (c *Coordinator) ExtractAll(ctx context.Context, cfg *config.Config, opts Options) (pool.Summary, error) {
	var sources []*config.APISource
	if opts.API != "" {
		src, err := cfg.APISource(opts.API)
		if err != nil {
			return pool.Summary{}, err
		}
		sources = append(sources, src)
	} else {
		sources = cfg.EnabledAPISources()
	}

	var items []pool.Item
	for _, src := range sources {
		source := src
		for _, ep := range src.Endpoints {
			if opts.Endpoint != "" && ep.Name != opts.Endpoint {
				continue
			}

			endpoint := ep
			outputPath := cfg.Resolve(ep.OutputFile)
			items = append(items, func(ctx context.Context) error {
				_, err := c.fetcher.Fetch(ctx, source, endpoint, outputPath)
				if err != nil {
					c.logger.Error("extraction failed",
						zap.String("source", source.Name),
						zap.String("endpoint", endpoint.Name),
						zap.Error(err))
				}
				return err
			})
		}
	}

	summary := pool.Run(ctx, c.workers, items)
	c.logger.Info("extraction complete",
		zap.Int64("succeeded", summary.Succeeded),
		zap.Int64("failed", summary.Failed))
	return summary, nil
}
