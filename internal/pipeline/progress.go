package pipeline

import "github.com/tharuncoder676/CWS/internal/report"

// Phase names reported in progress events.
const (
	PhaseClassify   = "classify"
	PhaseAnalyze    = "analyze"
	PhaseFacts      = "facts"
	PhaseStructure  = "structure"
	PhaseAbstract   = "abstract"
	PhaseReferences = "references"
	PhaseAppendices = "appendices"
	PhaseSection    = "section"
	PhaseDone       = "done"
)

// prePhases is the number of steps before section generation.
const prePhases = 7

// Event is one advisory progress notification.
type Event struct {
	Percent  int    `json:"percent"`
	Phase    string `json:"phase"`
	Message  string `json:"message"`
	Degraded bool   `json:"degraded,omitempty"`
}

// Observer receives progress and finished sections of a run. Calls are made
// from the run's goroutine, in order.
type Observer interface {
	Progress(Event)
	SectionDone(chapter report.ChapterDef, section report.Section)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) Progress(Event) {}

func (NopObserver) SectionDone(report.ChapterDef, report.Section) {}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnProgress func(Event)
	OnSection  func(report.ChapterDef, report.Section)
}

func (f ObserverFuncs) Progress(e Event) {
	if f.OnProgress != nil {
		f.OnProgress(e)
	}
}

func (f ObserverFuncs) SectionDone(ch report.ChapterDef, sec report.Section) {
	if f.OnSection != nil {
		f.OnSection(ch, sec)
	}
}

// tracker turns completed steps into percentages.
type tracker struct {
	obs   Observer
	done  int
	total int
}

func newTracker(obs Observer) *tracker {
	return &tracker{obs: obs, total: prePhases + report.DefaultStructure().SectionCount()}
}

func (t *tracker) setSections(n int) { t.total = prePhases + n }

func (t *tracker) step(phase, msg string, degraded bool) {
	t.done++
	pct := 100
	if t.total > 0 && t.done < t.total {
		pct = t.done * 100 / t.total
	}
	t.obs.Progress(Event{Percent: pct, Phase: phase, Message: msg, Degraded: degraded})
}
