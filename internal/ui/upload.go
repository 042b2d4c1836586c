package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/smashtrack/internal/analysis"
	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/session"
	"github.com/five82/smashtrack/internal/upload"
)

const (
	fieldPath = iota
	fieldTrim
)

// analyzeJob is the upload form plus the state of the current run. seq
// increments on every start and cancel so late results are dropped.
type analyzeJob struct {
	inputs  [2]textinput.Model
	focus   int
	spinner spinner.Model

	seq      int
	running  bool
	started  time.Time
	cancel   context.CancelFunc
	ref      upload.MediaReference
	err      error
	degraded bool
}

func newAnalyzeJob(limits upload.Limits) analyzeJob {
	var j analyzeJob
	path := textinput.New()
	path.Placeholder = "/path/to/smash.mp4"
	path.CharLimit = 512
	path.Prompt = ""
	trim := textinput.New()
	trim.Placeholder = fmt.Sprintf("start:end seconds, up to %gs (optional)", limits.MaxClip.Seconds())
	trim.CharLimit = 32
	trim.Prompt = ""
	j.inputs = [2]textinput.Model{path, trim}

	j.spinner = spinner.New()
	j.spinner.Spinner = spinner.Dot
	j.focusField(0)
	return j
}

func (j *analyzeJob) focusField(i int) {
	n := len(j.inputs)
	i = ((i % n) + n) % n
	for k := range j.inputs {
		if k == i {
			j.inputs[k].Focus()
		} else {
			j.inputs[k].Blur()
		}
	}
	j.focus = i
}

func (j *analyzeJob) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	j.inputs[j.focus], cmd = j.inputs[j.focus].Update(msg)
	return cmd
}

// canRetry reports whether the last failure left an uploaded reference that
// can be analyzed again without re-uploading.
func (j analyzeJob) canRetry() bool {
	return !j.running && j.err != nil && j.ref.ID != ""
}

type analyzeDoneMsg struct {
	seq int
	ref upload.MediaReference
	res analysis.Result
	err error
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.job.running {
			m.cancelJob()
			m.flash = "Analysis cancelled"
			m.navigate(session.RouteUpload)
		}
		return m, nil

	case key.Matches(msg, m.keys.Again):
		if m.job.canRetry() {
			return m.startAnalysis(m.job.ref)
		}
		return m, nil
	}

	if m.job.running {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.NextField):
		m.job.focusField(m.job.focus + 1)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.job.focusField(m.job.focus - 1)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.startUpload()
	}
	return m.updateForm(msg)
}

// startUpload validates the form and runs upload then analysis.
func (m Model) startUpload() (tea.Model, tea.Cmd) {
	if m.pipeline == nil {
		return m, nil
	}
	path := strings.TrimSpace(m.job.inputs[fieldPath].Value())
	if path == "" {
		m.job.err = gateway.Validation("choose a video file")
		m.job.ref = upload.MediaReference{}
		return m, nil
	}
	trim, err := upload.ParseTrim(m.job.inputs[fieldTrim].Value())
	if err == nil && trim != nil {
		err = upload.ValidateTrim(*trim, m.limits)
	}
	if err != nil {
		m.job.err = err
		m.job.ref = upload.MediaReference{}
		return m, nil
	}

	ctx, seq := m.beginJob(upload.MediaReference{})
	p := m.pipeline
	run := func() tea.Msg {
		ref, res, err := p.Run(ctx, upload.File{Path: path}, trim)
		return analyzeDoneMsg{seq: seq, ref: ref, res: res, err: err}
	}
	return m, tea.Batch(run, m.job.spinner.Tick)
}

// startAnalysis resubmits an already uploaded reference.
func (m Model) startAnalysis(ref upload.MediaReference) (tea.Model, tea.Cmd) {
	if m.pipeline == nil {
		return m, nil
	}
	ctx, seq := m.beginJob(ref)
	p := m.pipeline
	run := func() tea.Msg {
		res, err := p.Analyze(ctx, ref)
		return analyzeDoneMsg{seq: seq, ref: ref, res: res, err: err}
	}
	return m, tea.Batch(run, m.job.spinner.Tick)
}

func (m *Model) beginJob(ref upload.MediaReference) (context.Context, int) {
	ctx, cancel := context.WithCancel(m.ctx)
	m.job.seq++
	m.job.running = true
	m.job.started = time.Now()
	m.job.cancel = cancel
	m.job.ref = ref
	m.job.err = nil
	m.job.degraded = false
	m.flash = ""
	m.navigate(session.RouteAnalysis)
	return ctx, m.job.seq
}

// cancelJob abandons the running job. Its result, if any, is ignored and
// nothing is written to the report store.
func (m *Model) cancelJob() {
	if m.job.cancel != nil {
		m.job.cancel()
		m.job.cancel = nil
	}
	if m.job.ref.ID != "" && m.pipeline != nil {
		m.pipeline.Cancel(m.job.ref.ID)
	}
	m.job.seq++
	m.job.running = false
	m.job.err = nil
}

func (m Model) handleAnalyzeDone(msg analyzeDoneMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.job.seq {
		return m, nil
	}
	if m.job.cancel != nil {
		m.job.cancel()
		m.job.cancel = nil
	}
	m.job.running = false
	m.job.ref = msg.ref

	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			m.navigate(session.RouteUpload)
			return m, nil
		}
		m.job.err = msg.err
		if errors.Is(msg.err, gateway.ErrUnauthorized) {
			m.flash = gateway.Message(msg.err)
			m.navigate(session.RouteLogin)
			return m, nil
		}
		m.navigate(session.RouteUpload)
		return m, nil
	}

	m.job.degraded = len(msg.res.Attempts) > 1
	m.report = m.reports.Snapshot()
	if m.job.degraded {
		m.flash = "Provider was overloaded; this report used the lighter analysis."
	}
	m.navigate(session.RouteReport)
	return m, refreshHistoryCmd(m.ctx, m.refreshHistory)
}

func (m Model) renderUpload() string {
	styles := m.theme.Styles()
	var b strings.Builder

	b.WriteString(styles.AccentText.Bold(true).Render("Analyze a smash"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(fmt.Sprintf("%s up to %dMB",
		strings.Join(upload.AllowedExtensions(), ", "), m.limits.MaxBytes/(1024*1024))))
	b.WriteString("\n\n")

	labels := [2]string{"Video", "Trim"}
	for i := range m.job.inputs {
		label := padCells(labels[i], 8)
		if i == m.job.focus && !m.job.running {
			b.WriteString(styles.AccentText.Render("› " + label))
		} else {
			b.WriteString(styles.MutedText.Render("  " + label))
		}
		b.WriteString(m.job.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.job.running:
		elapsed := time.Since(m.job.started).Truncate(time.Second)
		b.WriteString(m.job.spinner.View())
		b.WriteString(" ")
		b.WriteString(styles.InfoText.Render(fmt.Sprintf("Analyzing... %s", elapsed)))
		b.WriteString("  ")
		b.WriteString(styles.FaintText.Render("esc to cancel"))
	case m.job.err != nil:
		b.WriteString(styles.DangerText.Render(gateway.Message(m.job.err)))
		if m.job.canRetry() {
			b.WriteString("\n")
			name := m.job.ref.Filename
			if name == "" {
				name = m.job.ref.ID
			}
			b.WriteString(styles.WarningText.Render("f5 to retry the analysis of " + clip(name, 40)))
		}
	default:
		b.WriteString(styles.FaintText.Render("enter to upload and analyze"))
	}
	return b.String()
}
