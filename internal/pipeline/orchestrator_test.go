package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tharuncoder676/CWS/internal/llm"
	"github.com/tharuncoder676/CWS/internal/report"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	kindClassify   = "classify"
	kindAnalyze    = "analyze"
	kindFacts      = "facts"
	kindStructure  = "structure"
	kindSection    = "section"
	kindAbstract   = "abstract"
	kindReferences = "references"
	kindAppendices = "appendices"
)

func kindOf(prompt string) string {
	switch {
	case strings.Contains(prompt, "academic domain classifier"):
		return kindClassify
	case strings.Contains(prompt, "domain is locked"):
		return kindAnalyze
	case strings.Contains(prompt, "prepare reference material"):
		return kindFacts
	case strings.Contains(prompt, "table of contents"):
		return kindStructure
	case strings.Contains(prompt, "Write section "):
		return kindSection
	case strings.Contains(prompt, "Write the abstract"):
		return kindAbstract
	case strings.Contains(prompt, "academic references"):
		return kindReferences
	case strings.Contains(prompt, "technical appendix"):
		return kindAppendices
	default:
		return "unknown"
	}
}

// fakeLLM answers every phase with well-formed content unless an override
// for the phase kind is set.
type fakeLLM struct {
	mu        sync.Mutex
	calls     map[string]int
	prompts   map[string][]string
	overrides map[string]func(prompt string) (string, error)
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{
		calls:     map[string]int{},
		prompts:   map[string][]string{},
		overrides: map[string]func(string) (string, error){},
	}
}

func (f *fakeLLM) on(kind string, fn func(prompt string) (string, error)) *fakeLLM {
	f.overrides[kind] = fn
	return f
}

func (f *fakeLLM) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, opts llm.Options) (string, error) {
	kind := kindOf(prompt)
	f.mu.Lock()
	f.calls[kind]++
	f.prompts[kind] = append(f.prompts[kind], prompt)
	fn := f.overrides[kind]
	f.mu.Unlock()
	if fn != nil {
		return fn(prompt)
	}
	return goodResponse(kind)
}

var longParagraph = strings.Repeat("This paragraph discusses the project in concrete technical detail. ", 3)

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func goodResponse(kind string) (string, error) {
	switch kind {
	case kindClassify:
		return `{"domain":"Computer Science","confidence":0.9}`, nil
	case kindAnalyze:
		return mustJSON(map[string]any{
			"detected_domain":  "Computer Science",
			"sub_domain":       "Distributed Systems",
			"keywords":         []string{"consensus", "replication", "latency", "throughput", "fault tolerance", "sharding"},
			"writing_style":    "Technical",
			"is_build_project": true,
			"rules":            []string{"Cite protocols by name"},
			"forbidden_topics": []string{"Astrology"},
			"internal_meaning": "A replicated key value store.",
		}), nil
	case kindFacts:
		return "Raft elects a leader per term and replicates a log to followers.", nil
	case kindStructure:
		return "```json\n" + mustJSON(report.DefaultStructure()) + "\n```", nil
	case kindSection:
		return mustJSON(map[string]any{
			"content":           []string{longParagraph, longParagraph, longParagraph},
			"technical_formula": "L = \\sum_i (y_i - \\hat{y}_i)^2",
			"technical_asset":   "graph TD; A-->B",
		}), nil
	case kindAbstract:
		return `{"paragraphs":["What it is.","How it works.","What it found.","Keywords: raft, replication"]}`, nil
	case kindReferences:
		refs := make([]string, 10)
		for i := range refs {
			refs[i] = "D. Ongaro, 'In Search of an Understandable Consensus Algorithm', [Link: https://raft.github.io/raft.pdf]"
		}
		return mustJSON(map[string]any{"references": refs}), nil
	case kindAppendices:
		return `{"title":"APPENDICES","items":["Go 1.24","etcd raft v3.5","Ubuntu 24.04","8 vCPU, 32GB RAM","Prometheus 2.53","Grafana 11","k6 load testing","Docker 27"]}`, nil
	}
	return "", errors.New("unexpected prompt")
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SectionDelay = 0
	cfg.RetryDelay = 0
	return cfg
}

func newTestOrchestrator(f *fakeLLM, opts ...Option) *Orchestrator {
	opts = append([]Option{WithConfig(testConfig())}, opts...)
	return New(llm.Backends{Fast: f, Content: f}, opts...)
}

type recorder struct {
	mu       sync.Mutex
	events   []Event
	sections []report.Section
}

func (r *recorder) Progress(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) SectionDone(_ report.ChapterDef, s report.Section) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sections = append(r.sections, s)
}

func TestGenerateHappyPath(t *testing.T) {
	f := newFakeLLM()
	rec := &recorder{}
	doc, err := newTestOrchestrator(f).Generate(context.Background(),
		report.NewBrief("Replicated KV Store", "Raft based", "", report.Options{UseEquations: true}), rec)
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.False(t, doc.Degraded())
	assert.Equal(t, "Computer Science", doc.Domain)
	require.Len(t, doc.Chapters, report.ChapterCount)
	assert.Equal(t, 30, doc.SectionCount())
	assert.Len(t, doc.Abstract, 4)
	assert.Len(t, doc.References, 10)
	assert.Len(t, doc.Appendices, 8)

	// formulas only in technical chapters
	for _, ch := range doc.Chapters {
		for _, sec := range ch.Sections {
			assert.Equal(t, report.SourceAI, sec.Source)
			if report.IsTechnicalChapter(ch.Number) {
				assert.NotEmpty(t, sec.Formula, sec.Number)
			} else {
				assert.Empty(t, sec.Formula, sec.Number)
			}
		}
	}

	assert.Equal(t, 30, f.count(kindSection))
	assert.Len(t, rec.sections, 30)
	require.NotEmpty(t, rec.events)
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, PhaseDone, last.Phase)
	assert.Equal(t, 100, last.Percent)
	prev := 0
	for _, e := range rec.events {
		assert.GreaterOrEqual(t, e.Percent, prev)
		prev = e.Percent
	}
	assert.Len(t, rec.events, prePhases+30+1)
}

func TestGenerateEquationsDisabledStripsFormula(t *testing.T) {
	f := newFakeLLM()
	doc, err := newTestOrchestrator(f).Generate(context.Background(),
		report.NewBrief("Replicated KV Store", "", "", report.Options{}), nil)
	require.NoError(t, err)
	for _, ch := range doc.Chapters {
		for _, sec := range ch.Sections {
			assert.Empty(t, sec.Formula)
		}
	}
	for _, p := range f.prompts[kindSection] {
		assert.Contains(t, p, "Do not include any equation")
	}
}

func TestGenerateAllCallsFail(t *testing.T) {
	f := newFakeLLM()
	fail := func(string) (string, error) { return "", &llm.UpstreamError{Status: 503, Message: "unavailable"} }
	for _, k := range []string{kindClassify, kindAnalyze, kindFacts, kindStructure, kindSection, kindAbstract, kindReferences, kindAppendices} {
		f.on(k, fail)
	}

	title := "Smart Traffic Light Control"
	rec := &recorder{}
	doc, err := newTestOrchestrator(f).Generate(context.Background(), report.NewBrief(title, "", "", report.Options{}), rec)
	require.NoError(t, err)
	require.NotNil(t, doc)

	require.Len(t, doc.Chapters, 10)
	for _, ch := range doc.Chapters {
		require.Len(t, ch.Sections, 3)
		for _, sec := range ch.Sections {
			assert.Equal(t, report.SourceFallback, sec.Source)
		}
	}
	assert.Len(t, doc.Abstract, 6)
	assert.Len(t, doc.References, 5)
	assert.Equal(t, report.DefaultAppendices(), doc.Appendices)
	assert.Contains(t, doc.Chapters[0].Sections[0].Content[0].Text, title)
	assert.Equal(t, report.DefaultDomain, doc.Domain)
	assert.True(t, doc.Degraded())
	assert.Equal(t, report.Provenance{
		Classification: report.SourceFallback,
		Analysis:       report.SourceFallback,
		Facts:          report.SourceFallback,
		Structure:      report.SourceFallback,
		Abstract:       report.SourceFallback,
		References:     report.SourceFallback,
		Appendices:     report.SourceFallback,
	}, doc.Provenance)
	assert.Equal(t, 30*(1+testConfig().MaxRetries), f.count(kindSection))

	degraded := 0
	for _, e := range rec.events {
		if e.Degraded {
			degraded++
		}
	}
	assert.Equal(t, len(rec.events), degraded)
}

func TestGenerateDomainLock(t *testing.T) {
	f := newFakeLLM().
		on(kindClassify, func(string) (string, error) {
			return `{"domain":"Bioinformatics","confidence":0.92}`, nil
		}).
		on(kindAnalyze, func(string) (string, error) {
			return `{"detected_domain":"Computer Science","sub_domain":"Web","keywords":["genome","alignment"]}`, nil
		})

	doc, err := newTestOrchestrator(f).Generate(context.Background(),
		report.NewBrief("Variant Calling Pipeline", "Short read alignment", "", report.Options{}), nil)
	require.NoError(t, err)
	assert.Equal(t, "Bioinformatics", doc.Domain)
	for _, p := range f.prompts[kindSection] {
		assert.Contains(t, p, "specialised in Bioinformatics")
		assert.NotContains(t, p, "specialised in Computer Science")
	}
	for _, p := range f.prompts[kindStructure] {
		assert.Contains(t, p, "Domain: Bioinformatics")
	}

	p := NewPhases(llm.Backends{Fast: f, Content: f}, llm.DefaultOptions())
	a, err := p.AnalyzeDomain(context.Background(), "x", "y", "Bioinformatics")
	require.NoError(t, err)
	assert.Equal(t, "Bioinformatics", a.DetectedDomain)
}

func TestGenerateDomainLockWhenAnalysisFails(t *testing.T) {
	f := newFakeLLM().
		on(kindClassify, func(string) (string, error) {
			return `{"domain":"Medical","confidence":0.8}`, nil
		}).
		on(kindAnalyze, func(string) (string, error) { return "not json", nil }).
		on(kindSection, func(string) (string, error) { return "", errors.New("down") })

	doc, err := newTestOrchestrator(f).Generate(context.Background(),
		report.NewBrief("Sepsis Early Warning", "", "", report.Options{}), nil)
	require.NoError(t, err)
	assert.Equal(t, "Medical", doc.Domain)
	assert.Equal(t, report.SourceFallback, doc.Provenance.Analysis)
	assert.Contains(t, doc.Chapters[0].Sections[0].Content[0].Text, "Medical")
	assert.Contains(t, doc.Chapters[0].Sections[0].Content[1].Text, strings.Join(report.DefaultKeywords, ", "))
}

func TestSectionRetryBound(t *testing.T) {
	f := newFakeLLM().on(kindSection, func(string) (string, error) {
		return `{"content":["short","short"]}`, nil
	})
	o := newTestOrchestrator(f)
	brief := report.NewBrief("Soil Moisture Sensor", "", "", report.Options{})
	doc, err := o.Generate(context.Background(), brief, nil)
	require.NoError(t, err)

	assert.Equal(t, 30*3, f.count(kindSection))
	first := doc.Chapters[0].Sections[0]
	structure := report.DefaultStructure()
	want := report.FallbackSection(structure.Chapters[0].Sections[0], structure.Chapters[0], brief.Title, brief.Description, report.Analysis{
		DetectedDomain: "Computer Science",
		Keywords:       []string{"consensus", "replication", "latency", "throughput", "fault tolerance", "sharding"},
	})
	assert.Equal(t, want.Content, first.Content)
	assert.Equal(t, report.SourceFallback, first.Source)
}

func TestSectionRecoversOnThirdAttempt(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	f := newFakeLLM().on(kindSection, func(prompt string) (string, error) {
		if strings.Contains(prompt, "Write section 1.1 ") {
			mu.Lock()
			attempts++
			n := attempts
			mu.Unlock()
			switch n {
			case 1:
				return `{"content":["short","short"]}`, nil
			case 2:
				return "", errors.New("timeout")
			}
		}
		return goodResponse(kindSection)
	})

	doc, err := newTestOrchestrator(f).Generate(context.Background(),
		report.NewBrief("Soil Moisture Sensor", "", "", report.Options{}), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, report.SourceAI, doc.Chapters[0].Sections[0].Source)
	assert.Equal(t, 32, f.count(kindSection))
}

func TestSectionDropsUnknownBlocks(t *testing.T) {
	f := newFakeLLM().on(kindSection, func(string) (string, error) {
		return mustJSON(map[string]any{"content": []any{
			longParagraph,
			map[string]any{"type": "chart", "data": []int{1, 2}},
			map[string]any{"type": "list", "items": []string{"a", "b"}},
			longParagraph,
			42,
		}}), nil
	})
	doc, err := newTestOrchestrator(f).Generate(context.Background(),
		report.NewBrief("Soil Moisture Sensor", "", "", report.Options{}), nil)
	require.NoError(t, err)
	content := doc.Chapters[0].Sections[0].Content
	require.Len(t, content, 3)
	assert.NotNil(t, content[1].List)
}

type fakeRefs struct {
	refs []string
	err  error
	got  []string
}

func (r *fakeRefs) FetchReferences(_ context.Context, _ string, keywords []string) ([]string, error) {
	r.got = keywords
	return r.refs, r.err
}

func TestSmartReferences(t *testing.T) {
	f := newFakeLLM()
	lookup := &fakeRefs{refs: []string{"A. Author, 'Real Paper', [Link: https://doi.org/10.1/x]"}}
	doc, err := newTestOrchestrator(f, WithReferences(lookup)).Generate(context.Background(),
		report.NewBrief("KV", "", "", report.Options{UseSmartReferences: true}), nil)
	require.NoError(t, err)
	assert.Equal(t, lookup.refs, doc.References)
	assert.Equal(t, report.SourceAI, doc.Provenance.References)
	assert.Zero(t, f.count(kindReferences))
	assert.Contains(t, lookup.got, "consensus")

	failing := &fakeRefs{err: errors.New("search down")}
	doc, err = newTestOrchestrator(newFakeLLM(), WithReferences(failing)).Generate(context.Background(),
		report.NewBrief("KV", "", "", report.Options{UseSmartReferences: true}), nil)
	require.NoError(t, err)
	assert.Equal(t, report.TemplateReferences("KV"), doc.References)
	assert.Equal(t, report.SourceFallback, doc.Provenance.References)
}

type fakeImages struct {
	mu      sync.Mutex
	prompts []string
	fail    bool
}

func (g *fakeImages) GenerateImage(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.fail {
		return "", errors.New("image backend down")
	}
	return "https://img.example/" + prompt, nil
}

func structureWithImage() string {
	s := report.DefaultStructure()
	s.Chapters[3].Sections[1].ImagePrompt = "pipeline-diagram"
	return mustJSON(s)
}

func TestImages(t *testing.T) {
	f := newFakeLLM().on(kindStructure, func(string) (string, error) { return structureWithImage(), nil })
	gen := &fakeImages{}
	doc, err := newTestOrchestrator(f, WithImages(gen)).Generate(context.Background(),
		report.NewBrief("KV", "", "", report.Options{UseAIImages: true}), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"pipeline-diagram"}, gen.prompts)
	assert.Equal(t, "https://img.example/pipeline-diagram", doc.Chapters[3].Sections[1].ImageURL)
	assert.Empty(t, doc.Chapters[0].Sections[0].ImageURL)

	failing := &fakeImages{fail: true}
	doc, err = newTestOrchestrator(newFakeLLM().on(kindStructure, func(string) (string, error) { return structureWithImage(), nil }),
		WithImages(failing)).Generate(context.Background(), report.NewBrief("KV", "", "", report.Options{UseAIImages: true}), nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Chapters[3].Sections[1].ImageURL)
	assert.Equal(t, report.SourceAI, doc.Chapters[3].Sections[1].Source)

	off := &fakeImages{}
	_, err = newTestOrchestrator(newFakeLLM().on(kindStructure, func(string) (string, error) { return structureWithImage(), nil }),
		WithImages(off)).Generate(context.Background(), report.NewBrief("KV", "", "", report.Options{}), nil)
	require.NoError(t, err)
	assert.Empty(t, off.prompts)
}

func TestStructureWithWrongChapterCountFallsBack(t *testing.T) {
	f := newFakeLLM().on(kindStructure, func(string) (string, error) {
		s := report.DefaultStructure()
		s.Chapters = s.Chapters[:4]
		return mustJSON(s), nil
	})
	doc, err := newTestOrchestrator(f).Generate(context.Background(), report.NewBrief("KV", "", "", report.Options{}), nil)
	require.NoError(t, err)
	assert.Equal(t, report.SourceFallback, doc.Provenance.Structure)
	assert.Len(t, doc.Chapters, 10)
	assert.Equal(t, "Background of Study", doc.Chapters[0].Sections[0].Title)
}

func TestStructurePromptUsesReferenceText(t *testing.T) {
	f := newFakeLLM()
	_, err := newTestOrchestrator(f).Generate(context.Background(),
		report.NewBrief("KV", "", "1. Intro\n2. Related Work", report.Options{}), nil)
	require.NoError(t, err)
	require.Len(t, f.prompts[kindStructure], 1)
	assert.Contains(t, f.prompts[kindStructure][0], "2. Related Work")
	assert.Contains(t, f.prompts[kindStructure][0], "Do not copy")
}

func TestClassifyNormalizes(t *testing.T) {
	f := newFakeLLM().on(kindClassify, func(string) (string, error) {
		return `{"domain":"underwater basket weaving","confidence":7}`, nil
	})
	p := NewPhases(llm.Backends{Fast: f, Content: f}, llm.DefaultOptions())
	c, err := p.ClassifyDomain(context.Background(), "t", "d")
	require.NoError(t, err)
	assert.Equal(t, "Other", c.Domain)
	assert.Equal(t, 1.0, c.Confidence)

	f.on(kindClassify, func(string) (string, error) { return `{"domain":"  data science ","confidence":-1}`, nil })
	c, err = p.ClassifyDomain(context.Background(), "t", "d")
	require.NoError(t, err)
	assert.Equal(t, "Data Science", c.Domain)
	assert.Equal(t, 0.0, c.Confidence)

	f.on(kindClassify, func(string) (string, error) { return `{"confidence":0.5}`, nil })
	_, err = p.ClassifyDomain(context.Background(), "t", "d")
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
}

func TestListPhasesAreCapped(t *testing.T) {
	many := func(prefix string, n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("%s %d", prefix, i+1)
		}
		return out
	}
	f := newFakeLLM().
		on(kindAbstract, func(string) (string, error) {
			return mustJSON(map[string]any{"paragraphs": append(many("para", 6), "Keywords: a, b, c")}), nil
		}).
		on(kindReferences, func(string) (string, error) {
			return mustJSON(map[string]any{"references": many("ref", 25)}), nil
		}).
		on(kindAppendices, func(string) (string, error) {
			return mustJSON(map[string]any{"title": "Appendix", "items": many("item", 30)}), nil
		})
	p := NewPhases(llm.Backends{Fast: f, Content: f}, llm.DefaultOptions())
	ctx := context.Background()
	a := report.Analysis{DetectedDomain: "Computer Science"}

	abs, err := p.GenerateAbstract(ctx, "t", "d", a, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"para 1", "para 2", "para 3", "Keywords: a, b, c"}, abs)

	refs, err := p.GenerateReferences(ctx, "t", a)
	require.NoError(t, err)
	assert.Len(t, refs, MaxReferences)
	assert.Equal(t, "ref 1", refs[0])

	items, err := p.GenerateAppendices(ctx, "t", "d", a)
	require.NoError(t, err)
	assert.Len(t, items, MaxAppendixItems)
}

func TestGenerateDisabledReturnsTemplate(t *testing.T) {
	rec := &recorder{}
	doc, err := New(llm.Backends{}).Generate(context.Background(), report.NewBrief("Offline", "", "", report.Options{}), rec)
	require.NoError(t, err)
	want := report.Template("Offline", "")
	assert.Equal(t, &want, doc)
	require.Len(t, rec.events, 1)
	assert.Equal(t, 100, rec.events[0].Percent)
}

func TestGenerateAbortsAtomically(t *testing.T) {
	obs := ObserverFuncs{OnSection: func(report.ChapterDef, report.Section) { panic("sink exploded") }}
	doc, err := newTestOrchestrator(newFakeLLM()).Generate(context.Background(), report.NewBrief("KV", "", "", report.Options{}), obs)
	assert.ErrorIs(t, err, ErrPipelineAborted)
	assert.Nil(t, doc)
}

func TestGenerateCancelledContextStillCompletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newFakeLLM()
	for _, k := range []string{kindClassify, kindAnalyze, kindFacts, kindStructure, kindSection, kindAbstract, kindReferences, kindAppendices} {
		f.on(k, func(string) (string, error) { return "", ctx.Err() })
	}
	cfg := DefaultConfig()
	doc, err := New(llm.Backends{Fast: f, Content: f}, WithConfig(cfg)).Generate(ctx, report.NewBrief("KV", "", "", report.Options{}), nil)
	require.NoError(t, err)
	assert.Equal(t, 30, doc.SectionCount())
	assert.True(t, doc.Degraded())
}
