package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/logging"
	"github.com/five82/smashtrack/internal/metrics"
	"github.com/five82/smashtrack/internal/upload"
)

// Mode selects the submission configuration.
type Mode int

const (
	// ModeFull requests the extended reasoning budget.
	ModeFull Mode = iota
	// ModeDegraded is the reduced configuration used once after overload.
	ModeDegraded
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// ErrEmptyResponse reports a successful call that carried no report.
var ErrEmptyResponse = errors.New("analysis returned an empty response")

// Submitter sends media for analysis and returns the raw decoded payload.
type Submitter interface {
	Submit(ctx context.Context, ref upload.MediaReference, mode Mode) (any, error)
}

// Fetcher loads a previously stored analysis by id.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (any, error)
}

// ReportWriter receives each completed report.
type ReportWriter interface {
	Set(report Report, mediaID string)
}

// Attempt records one submission and its outcome.
type Attempt struct {
	Mode Mode
	Err  error
}

// Result is a completed analysis.
type Result struct {
	Report   Report
	Attempts []Attempt
}

// FailedError is returned when no attempt produced a report. Err is the
// error of the last attempt.
type FailedError struct {
	Attempts []Attempt
	Err      error
}

func (e *FailedError) Error() string {
	modes := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		modes = append(modes, a.Mode.String())
	}
	return fmt.Sprintf("analysis failed after %s: %v", strings.Join(modes, ", "), e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Degraded reports whether the degraded configuration was tried.
func (e *FailedError) Degraded() bool {
	return len(e.Attempts) > 1
}

// IsExhausted reports whether err signals provider overload, the only
// failure that triggers the degraded retry.
func IsExhausted(err error) bool {
	return errors.Is(err, gateway.ErrOverloaded)
}

// Stage runs the analysis state machine and publishes the result.
type Stage struct {
	submitter Submitter
	store     ReportWriter
	metrics   *metrics.Manager
}

// Option customizes a Stage.
type Option func(*Stage)

// WithMetrics records attempts and fallbacks on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Stage) { s.metrics = m }
}

// NewStage builds a stage that submits through sub and writes to store.
func NewStage(sub Submitter, store ReportWriter, opts ...Option) *Stage {
	s := &Stage{submitter: sub, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type phase int

const (
	phaseSubmitFull phase = iota
	phaseSubmitDegraded
	phaseNormalize
	phaseDone
	phaseFailed
)

// Analyze submits ref in full mode, retries exactly once in degraded mode
// when the provider is overloaded, normalizes the payload and writes the
// report. A canceled ctx never reaches the write.
func (s *Stage) Analyze(ctx context.Context, ref upload.MediaReference) (Result, error) {
	if s.submitter == nil {
		return Result{}, fmt.Errorf("analysis stage has no submitter")
	}
	logger := logging.FromContext(ctx).With("media_id", ref.ID)

	var (
		attempts []Attempt
		raw      any
		lastErr  error
		report   Report
	)
	p := phaseSubmitFull
	for {
		switch p {
		case phaseSubmitFull:
			raw, lastErr = s.submit(ctx, ref, ModeFull)
			attempts = append(attempts, Attempt{Mode: ModeFull, Err: lastErr})
			switch {
			case lastErr == nil:
				p = phaseNormalize
			case IsExhausted(lastErr) && ctx.Err() == nil:
				logger.Warn("provider overloaded, retrying with degraded configuration", "error", lastErr)
				s.metrics.AnalysisFallback()
				p = phaseSubmitDegraded
			default:
				p = phaseFailed
			}

		case phaseSubmitDegraded:
			raw, lastErr = s.submit(ctx, ref, ModeDegraded)
			attempts = append(attempts, Attempt{Mode: ModeDegraded, Err: lastErr})
			if lastErr != nil {
				p = phaseFailed
			} else {
				p = phaseNormalize
			}

		case phaseNormalize:
			report = Normalize(raw)
			if report.VideoID == "" {
				report.VideoID = ref.ID
			}
			p = phaseDone

		case phaseDone:
			if err := ctx.Err(); err != nil {
				logger.Info("analysis abandoned before publish", "error", err)
				return Result{Attempts: attempts}, err
			}
			if s.store != nil {
				s.store.Set(report, ref.ID)
				s.metrics.ReportWritten()
			}
			logger.Info("analysis complete", "attempts", len(attempts), "speed", report.Speed, "score", report.Score)
			return Result{Report: report, Attempts: attempts}, nil

		case phaseFailed:
			logger.Warn("analysis failed", "attempts", len(attempts), "error", lastErr)
			return Result{Attempts: attempts}, &FailedError{Attempts: attempts, Err: lastErr}
		}
	}
}

// Recall loads a stored analysis through f, normalizes it and publishes it
// as the current report.
func (s *Stage) Recall(ctx context.Context, f Fetcher, id string) (Report, error) {
	if strings.TrimSpace(id) == "" {
		return Report{}, gateway.Validation("analysis id is required")
	}
	raw, err := f.Fetch(ctx, id)
	if err != nil {
		return Report{}, fmt.Errorf("fetch analysis %s: %w", id, err)
	}
	report := Normalize(raw)
	if report.ID == "" {
		report.ID = id
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if s.store != nil {
		s.store.Set(report, report.VideoID)
		s.metrics.ReportWritten()
	}
	return report, nil
}

func (s *Stage) submit(ctx context.Context, ref upload.MediaReference, mode Mode) (any, error) {
	raw, err := s.submitter.Submit(ctx, ref, mode)
	if err == nil && raw == nil {
		err = ErrEmptyResponse
	}
	outcome := "ok"
	if err != nil {
		outcome = gateway.KindOf(err).String()
		if errors.Is(err, ErrEmptyResponse) {
			outcome = "empty"
		}
	}
	s.metrics.AnalysisAttempt(mode.String(), outcome)
	return raw, err
}
