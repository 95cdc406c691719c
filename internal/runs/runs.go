// Package runs tracks background report generation runs and their progress
// events.
package runs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tharuncoder676/CWS/internal/pipeline"
	"github.com/tharuncoder676/CWS/internal/report"
)

// ErrUnknownRun is returned for run ids that were never started or have expired.
var ErrUnknownRun = errors.New("unknown run")

// Status of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event types.
const (
	TypeProgress = "progress"
	TypeSection  = "section"
	TypeDone     = "done"
	TypeError    = "error"
)

// Event is one entry of a run's event log.
type Event struct {
	Seq      int64     `json:"seq"`
	Type     string    `json:"type"`
	Percent  int       `json:"percent,omitempty"`
	Phase    string    `json:"phase,omitempty"`
	Message  string    `json:"message,omitempty"`
	Degraded bool      `json:"degraded,omitempty"`
	Section  string    `json:"section,omitempty"`
	Source   string    `json:"source,omitempty"`
	ReportID string    `json:"report_id,omitempty"`
	Time     time.Time `json:"time"`
}

// Terminal reports whether no further events follow e.
func (e Event) Terminal() bool {
	return e.Type == TypeDone || e.Type == TypeError
}

// Run is the stored state of one run.
type Run struct {
	ID       string    `json:"run_id"`
	UserID   string    `json:"-"`
	Title    string    `json:"title"`
	Status   Status    `json:"status"`
	ReportID string    `json:"report_id,omitempty"`
	Error    string    `json:"error,omitempty"`
	Started  time.Time `json:"started_at"`
	Events   []Event   `json:"events"`
}

// Sink receives the events of a run.
type Sink interface {
	Append(ctx context.Context, runID string, ev Event) error
}

// Observe adapts a Sink to the pipeline Observer interface. Append failures
// are logged; progress is advisory and never fails a run.
func Observe(ctx context.Context, sink Sink, runID string, log *zap.Logger) pipeline.Observer {
	if log == nil {
		log = zap.NewNop()
	}
	o := &observer{ctx: ctx, sink: sink, runID: runID, log: log}
	return pipeline.ObserverFuncs{OnProgress: o.progress, OnSection: o.section}
}

type observer struct {
	ctx   context.Context
	sink  Sink
	runID string
	log   *zap.Logger
}

func (o *observer) progress(e pipeline.Event) {
	o.append(Event{
		Type:     TypeProgress,
		Percent:  e.Percent,
		Phase:    e.Phase,
		Message:  e.Message,
		Degraded: e.Degraded,
	})
}

func (o *observer) section(ch report.ChapterDef, sec report.Section) {
	o.append(Event{
		Type:     TypeSection,
		Phase:    pipeline.PhaseSection,
		Section:  sec.Number + " " + sec.Title,
		Source:   string(sec.Source),
		Degraded: sec.Source == report.SourceFallback,
		Message:  ch.Title,
	})
}

func (o *observer) append(ev Event) {
	// The run context may already be cancelled while the pipeline finishes on
	// fallbacks; the event log should still record it.
	ctx := context.WithoutCancel(o.ctx)
	if err := o.sink.Append(ctx, o.runID, ev); err != nil {
		o.log.Warn("run event not recorded", zap.String("run_id", o.runID), zap.String("type", ev.Type), zap.Error(err))
	}
}
