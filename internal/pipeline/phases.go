package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tharuncoder676/CWS/internal/llm"
	"github.com/tharuncoder676/CWS/internal/report"
)

// FactsMaxTokens is the token budget of the fact extraction phase.
const FactsMaxTokens = 6000

// Upper bounds on list-shaped phase results. Extra entries are dropped.
const (
	AbstractParagraphs = 4
	MaxReferences      = 10
	MaxAppendixItems   = 10
)

var errNoBackend = errors.New("pipeline: backend not configured")

// Phases runs single pipeline steps against the bound backends. A phase
// never retries and returns every failure to its caller.
type Phases struct {
	backends llm.Backends
	opts     llm.Options
}

// NewPhases binds the phase functions to backends. opts supplies the
// temperature, token budget and timeout of every call.
func NewPhases(backends llm.Backends, opts llm.Options) *Phases {
	return &Phases{backends: backends, opts: opts}
}

func (p *Phases) completer(b llm.Backend) (llm.Completer, error) {
	c := p.backends.For(b)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", errNoBackend, b)
	}
	return c, nil
}

func (p *Phases) json(ctx context.Context, b llm.Backend, prompt string, v any) error {
	c, err := p.completer(b)
	if err != nil {
		return err
	}
	return llm.CompleteJSON(ctx, c, prompt, p.opts, v)
}

// ClassifyDomain assigns the brief to one of Domains.
func (p *Phases) ClassifyDomain(ctx context.Context, title, description string) (report.Classification, error) {
	var out report.Classification
	if err := p.json(ctx, llm.Fast, classifyPrompt(title, description), &out); err != nil {
		return report.Classification{}, fmt.Errorf("classify domain: %w", err)
	}
	if strings.TrimSpace(out.Domain) == "" {
		return report.Classification{}, fmt.Errorf("classify domain: %w: empty domain", llm.ErrMalformedResponse)
	}
	out.Domain = normalizeDomain(out.Domain)
	out.Confidence = clamp01(out.Confidence)
	return out, nil
}

func normalizeDomain(d string) string {
	d = strings.TrimSpace(d)
	for _, known := range Domains {
		if strings.EqualFold(d, known) {
			return known
		}
	}
	return "Other"
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

type analysisWire struct {
	DetectedDomain  string   `json:"detected_domain"`
	SubDomain       string   `json:"sub_domain"`
	Keywords        []string `json:"keywords"`
	WritingStyle    string   `json:"writing_style"`
	IsBuildProject  bool     `json:"is_build_project"`
	IsExperimental  bool     `json:"is_experimental"`
	IsTheoretical   bool     `json:"is_theoretical"`
	Rules           []string `json:"rules"`
	ForbiddenTopics []string `json:"forbidden_topics"`
	InternalMeaning string   `json:"internal_meaning"`
}

// AnalyzeDomain analyses the brief within the locked domain. The returned
// DetectedDomain is always domain, whatever the model answered.
func (p *Phases) AnalyzeDomain(ctx context.Context, title, description, domain string) (report.Analysis, error) {
	var w analysisWire
	if err := p.json(ctx, llm.Fast, analyzePrompt(title, description, domain), &w); err != nil {
		return report.Analysis{}, fmt.Errorf("analyze domain: %w", err)
	}
	return report.Analysis{
		DetectedDomain: domain,
		SubDomain:      w.SubDomain,
		Keywords:       nonEmpty(w.Keywords),
		WritingStyle:   w.WritingStyle,
		ProjectType: report.ProjectType{
			IsBuildProject: w.IsBuildProject,
			IsExperimental: w.IsExperimental,
			IsTheoretical:  w.IsTheoretical,
		},
		Rules:           nonEmpty(w.Rules),
		ForbiddenTopics: nonEmpty(w.ForbiddenTopics),
		InternalMeaning: w.InternalMeaning,
	}, nil
}

// ExtractFacts produces the plain-text fact sheet used to ground later phases.
func (p *Phases) ExtractFacts(ctx context.Context, title, description string, a report.Analysis) (string, error) {
	c, err := p.completer(llm.Content)
	if err != nil {
		return "", fmt.Errorf("extract facts: %w", err)
	}
	opts := p.opts
	opts.JSONMode = false
	opts.MaxTokens = FactsMaxTokens
	facts, err := c.Complete(ctx, factsPrompt(title, description, a), opts)
	if err != nil {
		return "", fmt.Errorf("extract facts: %w", err)
	}
	return strings.TrimSpace(facts), nil
}

// GenerateStructure plans the ten chapters. Chapter titles and numbering are
// forced to the fixed layout; any other shape is an error.
func (p *Phases) GenerateStructure(ctx context.Context, b report.Brief, a report.Analysis) (report.Structure, error) {
	var s report.Structure
	if err := p.json(ctx, llm.Fast, structurePrompt(b, a), &s); err != nil {
		return report.Structure{}, fmt.Errorf("generate structure: %w", err)
	}
	out, err := s.Normalize()
	if err != nil {
		return report.Structure{}, fmt.Errorf("generate structure: %w", err)
	}
	if !b.Options.UseAIImages {
		for i := range out.Chapters {
			for j := range out.Chapters[i].Sections {
				out.Chapters[i].Sections[j].ImagePrompt = ""
			}
		}
	}
	return out, nil
}

type sectionWire struct {
	Number           string            `json:"number"`
	Title            string            `json:"title"`
	Content          []json.RawMessage `json:"content"`
	TechnicalFormula string            `json:"technical_formula"`
	TechnicalAsset   string            `json:"technical_asset"`
	ImagePrompt      string            `json:"image_prompt"`
}

// SectionDraft is a generated section plus the illustration prompt the model
// proposed for it.
type SectionDraft struct {
	Section     report.Section
	ImagePrompt string
}

// GenerateSection writes one section. A formula is kept only when
// equations are enabled and the chapter is technical.
func (p *Phases) GenerateSection(ctx context.Context, in SectionInput) (SectionDraft, error) {
	var w sectionWire
	if err := p.json(ctx, llm.Content, sectionPrompt(in), &w); err != nil {
		return SectionDraft{}, fmt.Errorf("generate section %s: %w", in.Def.Number, err)
	}
	if w.Content == nil {
		return SectionDraft{}, fmt.Errorf("generate section %s: %w: no content", in.Def.Number, llm.ErrMalformedResponse)
	}
	sec := report.Section{
		Number:  in.Def.Number,
		Title:   in.Def.Title,
		Content: cleanContent(w.Content),
		Asset:   strings.TrimSpace(w.TechnicalAsset),
		Source:  report.SourceAI,
	}
	if in.wantsFormula() {
		sec.Formula = strings.TrimSpace(w.TechnicalFormula)
	}
	return SectionDraft{Section: sec, ImagePrompt: strings.TrimSpace(w.ImagePrompt)}, nil
}

// GenerateAbstract returns the abstract paragraphs, keyword line last.
func (p *Phases) GenerateAbstract(ctx context.Context, title, description string, a report.Analysis, facts string) ([]string, error) {
	var out struct {
		Paragraphs []string `json:"paragraphs"`
	}
	if err := p.json(ctx, llm.Content, abstractPrompt(title, description, a, facts), &out); err != nil {
		return nil, fmt.Errorf("generate abstract: %w", err)
	}
	paras := nonEmpty(out.Paragraphs)
	if len(paras) == 0 {
		return nil, fmt.Errorf("generate abstract: %w: no paragraphs", llm.ErrMalformedResponse)
	}
	if len(paras) > AbstractParagraphs {
		// The keyword line stays last.
		last := paras[len(paras)-1]
		paras = append(paras[:AbstractParagraphs-1:AbstractParagraphs-1], last)
	}
	return paras, nil
}

// GenerateReferences asks the model for citation strings.
func (p *Phases) GenerateReferences(ctx context.Context, title string, a report.Analysis) ([]string, error) {
	var out struct {
		References []string `json:"references"`
	}
	if err := p.json(ctx, llm.Fast, referencesPrompt(title, a), &out); err != nil {
		return nil, fmt.Errorf("generate references: %w", err)
	}
	refs := nonEmpty(out.References)
	if len(refs) == 0 {
		return nil, fmt.Errorf("generate references: %w: no references", llm.ErrMalformedResponse)
	}
	return capped(refs, MaxReferences), nil
}

// GenerateAppendices returns the technical appendix bullets.
func (p *Phases) GenerateAppendices(ctx context.Context, title, description string, a report.Analysis) ([]string, error) {
	var out struct {
		Title string   `json:"title"`
		Items []string `json:"items"`
	}
	if err := p.json(ctx, llm.Fast, appendicesPrompt(title, description, a), &out); err != nil {
		return nil, fmt.Errorf("generate appendices: %w", err)
	}
	items := nonEmpty(out.Items)
	if len(items) == 0 {
		return nil, fmt.Errorf("generate appendices: %w: no items", llm.ErrMalformedResponse)
	}
	return capped(items, MaxAppendixItems), nil
}

// cleanContent keeps paragraphs and list or table blocks and drops
// anything else the model emitted.
func cleanContent(raw []json.RawMessage) []report.ContentItem {
	items := make([]report.ContentItem, 0, len(raw))
	for _, r := range raw {
		var it report.ContentItem
		if err := json.Unmarshal(r, &it); err != nil {
			continue
		}
		items = append(items, it)
	}
	return items
}

func capped(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
