// Package pipeline sequences the report generation phases and applies the
// per-phase fallback and section retry policy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tharuncoder676/CWS/internal/llm"
	"github.com/tharuncoder676/CWS/internal/report"
)

var (
	// ErrValidationFailed marks a generated section rejected as too thin.
	ErrValidationFailed = errors.New("pipeline: section content too thin")
	// ErrPipelineAborted is returned when a run fails as a whole. No
	// document is returned with it.
	ErrPipelineAborted = errors.New("pipeline: run aborted")
)

// ImageGenerator produces an illustration URL for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// ReferenceLookup finds real citations for a title and its keywords.
type ReferenceLookup interface {
	FetchReferences(ctx context.Context, title string, keywords []string) ([]string, error)
}

// Config holds the retry and pacing policy of a run.
type Config struct {
	// MaxRetries is the number of extra attempts per section.
	MaxRetries int
	// SectionDelay is the pause between two section generations.
	SectionDelay time.Duration
	// RetryDelay is the pause before re-submitting a section prompt.
	RetryDelay time.Duration
	// LLM carries the generation parameters of every call.
	LLM llm.Options
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   2,
		SectionDelay: 1500 * time.Millisecond,
		RetryDelay:   2 * time.Second,
		LLM:          llm.DefaultOptions(),
	}
}

// Orchestrator runs generation pipelines. It holds no per-run state and is
// safe for concurrent runs.
type Orchestrator struct {
	phases  *Phases
	enabled bool
	cfg     Config
	images  ImageGenerator
	refs    ReferenceLookup
	log     *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithConfig(cfg Config) Option { return func(o *Orchestrator) { o.cfg = cfg } }

func WithImages(g ImageGenerator) Option { return func(o *Orchestrator) { o.images = g } }

func WithReferences(r ReferenceLookup) Option { return func(o *Orchestrator) { o.refs = r } }

func WithLogger(l *zap.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// New builds an Orchestrator over backends. When either backend is missing
// every run returns the template report.
func New(backends llm.Backends, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: DefaultConfig(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	o.phases = NewPhases(backends, o.cfg.LLM)
	o.enabled = backends.Enabled()
	return o
}

// Generate runs the full pipeline for brief. Every phase failure is replaced
// by a default, so the only error is ErrPipelineAborted. obs may be nil.
func (o *Orchestrator) Generate(ctx context.Context, brief report.Brief, obs Observer) (doc *report.Document, err error) {
	if obs == nil {
		obs = NopObserver{}
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("pipeline panic", zap.Any("panic", r), zap.String("title", brief.Title))
			doc, err = nil, fmt.Errorf("%w: %v", ErrPipelineAborted, r)
		}
	}()

	if !o.enabled {
		tpl := report.Template(brief.Title, brief.Description)
		obs.Progress(Event{Percent: 100, Phase: PhaseDone, Message: "AI generation disabled, using template report", Degraded: true})
		return &tpl, nil
	}
	return o.run(ctx, brief, obs), nil
}

func (o *Orchestrator) run(ctx context.Context, brief report.Brief, obs Observer) *report.Document {
	log := o.log.With(zap.String("title", brief.Title))
	t := newTracker(obs)
	doc := &report.Document{}
	title, desc := brief.Title, brief.Description

	cls, err := o.phases.ClassifyDomain(ctx, title, desc)
	doc.Provenance.Classification = o.source(log, PhaseClassify, err)
	if err != nil {
		cls = report.Classification{Domain: report.DefaultDomain, Confidence: 1}
		t.step(PhaseClassify, "Domain classification failed, assuming "+cls.Domain, true)
	} else {
		t.step(PhaseClassify, fmt.Sprintf("Classified as %s (%.0f%% confidence)", cls.Domain, cls.Confidence*100), false)
	}
	doc.Domain = cls.Domain

	analysis, err := o.phases.AnalyzeDomain(ctx, title, desc, cls.Domain)
	doc.Provenance.Analysis = o.source(log, PhaseAnalyze, err)
	if err != nil {
		analysis = report.Analysis{Keywords: append([]string(nil), report.DefaultKeywords...)}
		t.step(PhaseAnalyze, "Domain analysis failed, using default keywords", true)
	} else {
		t.step(PhaseAnalyze, "Analyzed "+cls.Domain+" keywords and writing rules", false)
	}
	analysis.DetectedDomain = cls.Domain

	facts, err := o.phases.ExtractFacts(ctx, title, desc, analysis)
	if err == nil && facts == "" {
		err = fmt.Errorf("extract facts: %w", llm.ErrEmptyResponse)
	}
	doc.Provenance.Facts = o.source(log, PhaseFacts, err)
	if err != nil {
		facts = ""
		t.step(PhaseFacts, "Fact extraction failed, continuing without grounding", true)
	} else {
		t.step(PhaseFacts, fmt.Sprintf("Extracted %d characters of grounding material", len(facts)), false)
	}

	structure, err := o.phases.GenerateStructure(ctx, brief, analysis)
	doc.Provenance.Structure = o.source(log, PhaseStructure, err)
	if err != nil {
		structure = report.DefaultStructure()
		t.step(PhaseStructure, "Structure generation failed, falling back to the default chapters", true)
	} else {
		t.step(PhaseStructure, "Planned 10 chapters for "+cls.Domain, false)
	}
	t.setSections(structure.SectionCount())

	abstract, err := o.phases.GenerateAbstract(ctx, title, desc, analysis, facts)
	doc.Provenance.Abstract = o.source(log, PhaseAbstract, err)
	if err != nil {
		abstract = report.TemplateAbstract(title, desc)
		t.step(PhaseAbstract, "Abstract generation failed, falling back to template", true)
	} else {
		t.step(PhaseAbstract, "Abstract written", false)
	}
	doc.Abstract = abstract

	refs, err := o.references(ctx, brief, analysis)
	doc.Provenance.References = o.source(log, PhaseReferences, err)
	if err != nil {
		refs = report.TemplateReferences(title)
		t.step(PhaseReferences, "Reference generation failed, falling back to template", true)
	} else {
		t.step(PhaseReferences, fmt.Sprintf("Collected %d references", len(refs)), false)
	}
	doc.References = refs

	appx, err := o.phases.GenerateAppendices(ctx, title, desc, analysis)
	doc.Provenance.Appendices = o.source(log, PhaseAppendices, err)
	if err != nil {
		appx = report.DefaultAppendices()
		t.step(PhaseAppendices, "Appendix generation failed, using default environment notes", true)
	} else {
		t.step(PhaseAppendices, "Appendices written", false)
	}
	doc.Appendices = appx

	first := true
	for _, ch := range structure.Chapters {
		chapter := report.Chapter{Number: ch.Number, Title: ch.Title}
		for _, def := range ch.Sections {
			if !first {
				o.sleep(ctx, o.cfg.SectionDelay)
			}
			first = false

			sec := o.section(ctx, log, SectionInput{
				Def:         def,
				Chapter:     ch,
				Title:       title,
				Description: desc,
				Analysis:    analysis,
				Facts:       facts,
				Equations:   brief.Options.UseEquations,
			}, brief.Options.UseAIImages)
			chapter.Sections = append(chapter.Sections, sec)

			obs.SectionDone(ch, sec)
			if sec.Source == report.SourceFallback {
				t.step(PhaseSection, fmt.Sprintf("Section %s %s used fallback content", sec.Number, sec.Title), true)
			} else {
				t.step(PhaseSection, fmt.Sprintf("Wrote section %s %s", sec.Number, sec.Title), false)
			}
		}
		doc.Chapters = append(doc.Chapters, chapter)
	}

	obs.Progress(Event{
		Percent:  100,
		Phase:    PhaseDone,
		Message:  fmt.Sprintf("Report compiled (%d sections)", doc.SectionCount()),
		Degraded: doc.Degraded(),
	})
	log.Info("report generated", zap.String("domain", doc.Domain), zap.Int("sections", doc.SectionCount()), zap.Bool("degraded", doc.Degraded()))
	return doc
}

// section generates one section with bounded retries and falls back to the
// template section once attempts are exhausted.
func (o *Orchestrator) section(ctx context.Context, log *zap.Logger, in SectionInput, images bool) report.Section {
	attempts := 1 + o.cfg.MaxRetries
	var (
		sec         report.Section
		imagePrompt string
		ok          bool
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			o.sleep(ctx, o.cfg.RetryDelay)
		}
		draft, err := o.phases.GenerateSection(ctx, in)
		if err == nil && !report.IsSubstantial(draft.Section.Content) {
			err = ErrValidationFailed
		}
		if err == nil {
			sec, imagePrompt, ok = draft.Section, draft.ImagePrompt, true
			break
		}
		log.Warn("section attempt failed",
			zap.String("section", in.Def.Number),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
	}
	if !ok {
		sec = report.FallbackSection(in.Def, in.Chapter, in.Title, in.Description, in.Analysis)
	}

	if imagePrompt == "" {
		imagePrompt = in.Def.ImagePrompt
	}
	if images && o.images != nil && imagePrompt != "" {
		url, err := o.images.GenerateImage(ctx, imagePrompt)
		if err != nil {
			log.Warn("image generation failed", zap.String("section", in.Def.Number), zap.Error(err))
		} else {
			sec.ImageURL = url
		}
	}
	return sec
}

func (o *Orchestrator) references(ctx context.Context, brief report.Brief, a report.Analysis) ([]string, error) {
	if brief.Options.UseSmartReferences && o.refs != nil {
		refs, err := o.refs.FetchReferences(ctx, brief.Title, a.Keywords)
		if err != nil {
			return nil, fmt.Errorf("smart references: %w", err)
		}
		if len(refs) == 0 {
			return nil, errors.New("smart references: no results")
		}
		return refs, nil
	}
	return o.phases.GenerateReferences(ctx, brief.Title, a)
}

func (o *Orchestrator) source(log *zap.Logger, phase string, err error) report.Source {
	if err != nil {
		log.Warn("phase degraded", zap.String("phase", phase), zap.Error(err))
		return report.SourceFallback
	}
	return report.SourceAI
}

// sleep waits d or until ctx is done.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
