// Package pipeline sequences upload and analysis for the CLI and TUI.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/five82/smashtrack/internal/analysis"
	"github.com/five82/smashtrack/internal/logging"
	"github.com/five82/smashtrack/internal/upload"
)

// ErrInFlight rejects a second analysis of media that is already being
// analyzed.
var ErrInFlight = errors.New("analysis already running for this media")

// Uploader produces a MediaReference from a local file.
type Uploader interface {
	Upload(ctx context.Context, f upload.File, trim *upload.TrimWindow) (upload.MediaReference, error)
	Prepare(f upload.File, trim *upload.TrimWindow) (upload.MediaReference, error)
}

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, ref upload.MediaReference) (analysis.Result, error)
}

// Runner runs upload then analysis, allowing at most one in-flight analysis
// per media id.
type Runner struct {
	uploader Uploader
	analyzer Analyzer
	local    bool

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLocalMedia skips the upload and analyzes the file in place. Used when
// the client talks to the generative provider directly.
func WithLocalMedia(local bool) Option {
	return func(r *Runner) { r.local = local }
}

// NewRunner wires the two stages.
func NewRunner(up Uploader, an Analyzer, opts ...Option) *Runner {
	r := &Runner{uploader: up, analyzer: an, inflight: make(map[string]context.CancelFunc)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run uploads f and then analyzes the resulting reference. The reference is
// returned even when analysis fails so the caller can retry it.
func (r *Runner) Run(ctx context.Context, f upload.File, trim *upload.TrimWindow) (upload.MediaReference, analysis.Result, error) {
	ref, err := r.Stage(ctx, f, trim)
	if err != nil {
		return upload.MediaReference{}, analysis.Result{}, err
	}
	res, err := r.Analyze(ctx, ref)
	return ref, res, err
}

// Stage produces the MediaReference without analyzing it.
func (r *Runner) Stage(ctx context.Context, f upload.File, trim *upload.TrimWindow) (upload.MediaReference, error) {
	if r.local {
		return r.uploader.Prepare(f, trim)
	}
	return r.uploader.Upload(ctx, f, trim)
}

// Analyze runs the analysis stage for ref. A concurrent call for the same
// ref.ID fails fast with ErrInFlight and never touches the report store.
func (r *Runner) Analyze(ctx context.Context, ref upload.MediaReference) (analysis.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !r.record(ref.ID, cancel) {
		return analysis.Result{}, ErrInFlight
	}
	defer r.unrecord(ref.ID)

	logging.FromContext(ctx).Debug("analysis started", "media_id", ref.ID)
	return r.analyzer.Analyze(ctx, ref)
}

// Cancel abandons the in-flight analysis of refID. It reports whether one
// was running. A canceled analysis never writes a report.
func (r *Runner) Cancel(refID string) bool {
	r.mu.Lock()
	cancel, ok := r.inflight[refID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Running reports whether refID is being analyzed.
func (r *Runner) Running(refID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[refID]
	return ok
}

func (r *Runner) record(id string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[id]; busy {
		return false
	}
	r.inflight[id] = cancel
	return true
}

func (r *Runner) unrecord(id string) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
}
