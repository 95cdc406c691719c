// Package report holds the capstone report data model, the content validator
// and the network-free fallback template engine.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Options are the generation switches chosen in the wizard.
type Options struct {
	UseAIImages        bool `json:"use_ai_images"        bson:"use_ai_images"        yaml:"use_ai_images"`
	UseSmartReferences bool `json:"use_smart_references" bson:"use_smart_references" yaml:"use_smart_references"`
	UseEquations       bool `json:"use_equations"        bson:"use_equations"        yaml:"use_equations"`
}

// DefaultOptions returns the switches a request starts from. Equations are
// on unless a request turns them off.
func DefaultOptions() Options {
	return Options{UseEquations: true}
}

// Brief is the immutable input of one generation run.
type Brief struct {
	Title         string  `json:"title"          yaml:"title"`
	Description   string  `json:"description"    yaml:"description"`
	ReferenceText string  `json:"reference_text" yaml:"reference_text"`
	Options       Options `json:"options"        yaml:"options"`
}

// MaxReferenceText bounds the uploaded reference document text.
const MaxReferenceText = 20000

// NewBrief trims its inputs and truncates the reference text.
func NewBrief(title, description, referenceText string, opts Options) Brief {
	return Brief{
		Title:         strings.TrimSpace(title),
		Description:   strings.TrimSpace(description),
		ReferenceText: Truncate(strings.TrimSpace(referenceText), MaxReferenceText),
		Options:       opts,
	}
}

// Classification is the result of the domain classification phase.
type Classification struct {
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
}

// ProjectType flags steer the generated structure.
type ProjectType struct {
	IsBuildProject bool `json:"is_build_project" bson:"is_build_project"`
	IsExperimental bool `json:"is_experimental"  bson:"is_experimental"`
	IsTheoretical  bool `json:"is_theoretical"   bson:"is_theoretical"`
}

// Analysis is the domain-locked topic analysis. DetectedDomain always equals
// the classified domain of the run.
type Analysis struct {
	DetectedDomain  string      `json:"detected_domain"  bson:"detected_domain"`
	SubDomain       string      `json:"sub_domain"       bson:"sub_domain"`
	Keywords        []string    `json:"keywords"         bson:"keywords"`
	WritingStyle    string      `json:"writing_style"    bson:"writing_style"`
	ProjectType     ProjectType `json:"project_type"     bson:"project_type"`
	Rules           []string    `json:"rules"            bson:"rules"`
	ForbiddenTopics []string    `json:"forbidden_topics" bson:"forbidden_topics"`
	InternalMeaning string      `json:"internal_meaning" bson:"internal_meaning"`
}

// SectionDef is a planned section of a chapter.
type SectionDef struct {
	Number      string `json:"num"`
	Title       string `json:"title"`
	ImagePrompt string `json:"image_prompt,omitempty"`
}

// ChapterDef is a planned chapter.
type ChapterDef struct {
	Number   int          `json:"num"`
	Title    string       `json:"title"`
	Sections []SectionDef `json:"sections"`
}

// Structure is the ordered list of the ten planned chapters.
type Structure struct {
	Chapters []ChapterDef `json:"chapters"`
}

// SectionCount returns the number of planned sections across all chapters.
func (s Structure) SectionCount() int {
	n := 0
	for _, ch := range s.Chapters {
		n += len(ch.Sections)
	}
	return n
}

// ListBlock is a bulleted list inside section content.
type ListBlock struct {
	Items []string `json:"items" bson:"items"`
}

// TableBlock is a captioned table inside section content.
type TableBlock struct {
	Caption string     `json:"caption" bson:"caption"`
	Headers []string   `json:"headers" bson:"headers"`
	Rows    [][]string `json:"rows"    bson:"rows"`
}

// ContentItem is either a paragraph of text or a structured block. It
// marshals to a bare JSON string for paragraphs and to a typed object for
// blocks.
type ContentItem struct {
	Text  string      `bson:"text,omitempty"`
	List  *ListBlock  `bson:"list,omitempty"`
	Table *TableBlock `bson:"table,omitempty"`
}

// Paragraph returns a text content item.
func Paragraph(text string) ContentItem { return ContentItem{Text: text} }

// IsText reports whether the item is a plain paragraph.
func (c ContentItem) IsText() bool { return c.List == nil && c.Table == nil }

func (c ContentItem) MarshalJSON() ([]byte, error) {
	switch {
	case c.List != nil:
		return json.Marshal(struct {
			Type  string   `json:"type"`
			Items []string `json:"items"`
		}{"list", c.List.Items})
	case c.Table != nil:
		return json.Marshal(struct {
			Type    string     `json:"type"`
			Caption string     `json:"caption"`
			Headers []string   `json:"headers"`
			Rows    [][]string `json:"rows"`
		}{"table", c.Table.Caption, c.Table.Headers, c.Table.Rows})
	default:
		return json.Marshal(c.Text)
	}
}

func (c *ContentItem) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = ContentItem{Text: text}
		return nil
	}
	var block struct {
		Type    string          `json:"type"`
		Items   []string        `json:"items"`
		Caption string          `json:"caption"`
		Headers []string        `json:"headers"`
		Rows    [][]interface{} `json:"rows"`
	}
	if err := json.Unmarshal(data, &block); err != nil {
		return fmt.Errorf("content item: %w", err)
	}
	switch block.Type {
	case "list":
		*c = ContentItem{List: &ListBlock{Items: block.Items}}
	case "table":
		rows := make([][]string, 0, len(block.Rows))
		for _, r := range block.Rows {
			cells := make([]string, len(r))
			for i, cell := range r {
				cells[i] = fmt.Sprint(cell)
			}
			rows = append(rows, cells)
		}
		*c = ContentItem{Table: &TableBlock{Caption: block.Caption, Headers: block.Headers, Rows: rows}}
	default:
		return fmt.Errorf("content item: unsupported block type %q", block.Type)
	}
	return nil
}

// Source tells whether an artifact was produced by the model or substituted.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Section is a generated section of a chapter.
type Section struct {
	Number   string        `json:"number"              bson:"number"`
	Title    string        `json:"title"               bson:"title"`
	Content  []ContentItem `json:"content"             bson:"content"`
	Formula  string        `json:"formula,omitempty"   bson:"formula,omitempty"`
	Asset    string        `json:"asset,omitempty"     bson:"asset,omitempty"`
	ImageURL string        `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Source   Source        `json:"source"              bson:"source"`
}

// Chapter is a generated chapter.
type Chapter struct {
	Number   int       `json:"number"   bson:"number"`
	Title    string    `json:"title"    bson:"title"`
	Sections []Section `json:"sections" bson:"sections"`
}

// Provenance records, per pre-section phase, whether the model output was
// used or a default was substituted.
type Provenance struct {
	Classification Source `json:"classification" bson:"classification"`
	Analysis       Source `json:"analysis"       bson:"analysis"`
	Facts          Source `json:"facts"          bson:"facts"`
	Structure      Source `json:"structure"      bson:"structure"`
	Abstract       Source `json:"abstract"       bson:"abstract"`
	References     Source `json:"references"     bson:"references"`
	Appendices     Source `json:"appendices"     bson:"appendices"`
}

// Document is the assembled report consumed by the exporters.
type Document struct {
	Abstract   []string   `json:"abstract"   bson:"abstract"`
	Chapters   []Chapter  `json:"chapters"   bson:"chapters"`
	References []string   `json:"references" bson:"references"`
	Appendices []string   `json:"appendices" bson:"appendices"`
	Domain     string     `json:"domain"     bson:"domain"`
	Provenance Provenance `json:"provenance" bson:"provenance"`
}

// Degraded reports whether any part of the document came from a fallback.
func (d *Document) Degraded() bool {
	p := d.Provenance
	for _, s := range []Source{p.Classification, p.Analysis, p.Facts, p.Structure, p.Abstract, p.References, p.Appendices} {
		if s == SourceFallback {
			return true
		}
	}
	for _, ch := range d.Chapters {
		for _, sec := range ch.Sections {
			if sec.Source == SourceFallback {
				return true
			}
		}
	}
	return false
}

// SectionCount returns the number of generated sections.
func (d *Document) SectionCount() int {
	n := 0
	for _, ch := range d.Chapters {
		n += len(ch.Sections)
	}
	return n
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
