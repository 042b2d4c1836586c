package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/five82/smashtrack/internal/analysis"
	"github.com/five82/smashtrack/internal/config"
	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/history"
	"github.com/five82/smashtrack/internal/logging"
	"github.com/five82/smashtrack/internal/metrics"
	"github.com/five82/smashtrack/internal/pipeline"
	"github.com/five82/smashtrack/internal/session"
	"github.com/five82/smashtrack/internal/state"
	"github.com/five82/smashtrack/internal/tokenstore"
	"github.com/five82/smashtrack/internal/upload"
)

// Deps is the wired object graph shared by the CLI commands and the TUI.
type Deps struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.Manager

	Tokens   *tokenstore.Store
	API      *gateway.Client
	Session  *session.Service
	Uploads  *upload.Stage
	Analysis *analysis.Stage
	Fetcher  analysis.Fetcher
	Runner   *pipeline.Runner

	Reports      *state.Store
	History      *history.Client
	HistoryStore *state.HistoryStore
}

// NewDeps builds every component from cfg. Nothing touches the network.
func NewDeps(cfg config.Config, logger *slog.Logger) (*Deps, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	tokens, err := tokenstore.Open(cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	m := metrics.NewManager()
	api, err := gateway.New(cfg.APIBase, tokens,
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		gateway.WithLogger(logger),
		gateway.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("init gateway: %w", err)
	}

	backend := analysis.NewBackendSubmitter(api)
	var submitter analysis.Submitter = backend
	if cfg.AnalysisMode == config.AnalysisModeProvider {
		provider, err := analysis.NewProviderSubmitter(api, cfg.ProviderEndpoint, cfg.ProviderModel, cfg.ProviderAPIKey)
		if err != nil {
			return nil, fmt.Errorf("init provider: %w", err)
		}
		submitter = provider
	}

	reports := &state.Store{}
	uploads := upload.NewStage(api,
		upload.WithLimits(upload.Limits{MaxBytes: cfg.MaxUploadBytes(), MaxClip: cfg.MaxClip()}),
		upload.WithMetrics(m),
	)
	stage := analysis.NewStage(submitter, reports, analysis.WithMetrics(m))

	return &Deps{
		Config:       cfg,
		Logger:       logger,
		Metrics:      m,
		Tokens:       tokens,
		API:          api,
		Session:      session.NewService(api, tokens),
		Uploads:      uploads,
		Analysis:     stage,
		Fetcher:      backend,
		Runner:       pipeline.NewRunner(uploads, stage, pipeline.WithLocalMedia(cfg.AnalysisMode == config.AnalysisModeProvider)),
		Reports:      reports,
		History:      history.NewClient(api),
		HistoryStore: &state.HistoryStore{},
	}, nil
}

// Guard returns a guard over the credential store.
func (d *Deps) Guard(nav session.Navigator) session.Guard {
	return session.Guard{Tokens: d.Tokens, Nav: nav}
}

// Restore revalidates a stored credential. Network trouble is logged and
// otherwise ignored so an offline start still works.
func (d *Deps) Restore(ctx context.Context) bool {
	active, err := d.Session.Restore(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		d.Logger.Warn("session restore failed", "error", err)
	}
	return active
}

// Close flushes metrics to the configured textfile.
func (d *Deps) Close() error {
	if err := d.Metrics.WriteTextfile(d.Config.MetricsPath); err != nil {
		return fmt.Errorf("flush metrics: %w", err)
	}
	return nil
}
