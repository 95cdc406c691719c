package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"

	"github.com/tharuncoder676/CWS/internal/export"
	"github.com/tharuncoder676/CWS/internal/report"
)

// briefFile is the YAML input of the generate and template commands.
type briefFile struct {
	FrontMatter   export.FrontMatter `yaml:"front_matter"`
	Description   string             `yaml:"description"`
	ReferenceText string             `yaml:"reference_text"`
	// ReferenceFile is read relative to the brief when ReferenceText is empty.
	ReferenceFile string         `yaml:"reference_file"`
	Options       report.Options `yaml:"options"`
}

func loadBrief(path string) (*briefFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading brief: %w", err)
	}
	b := briefFile{Options: report.DefaultOptions()}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing brief %s: %w", path, err)
	}
	b.FrontMatter.Title = strings.TrimSpace(b.FrontMatter.Title)
	if b.FrontMatter.Title == "" {
		return nil, fmt.Errorf("brief %s: front_matter.title is required", path)
	}
	if b.ReferenceText == "" && b.ReferenceFile != "" {
		ref := b.ReferenceFile
		if !filepath.IsAbs(ref) {
			ref = filepath.Join(filepath.Dir(path), ref)
		}
		text, err := readReference(ref)
		if err != nil {
			return nil, err
		}
		b.ReferenceText = text
	}
	return &b, nil
}

// readReference returns the text of a plain-text or .docx reference file.
func readReference(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading reference file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".docx") {
		text, err := export.DOCXText(data)
		if err != nil {
			return "", fmt.Errorf("reading reference file %s: %w", path, err)
		}
		return text, nil
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("reference file %s: unsupported binary format (use .docx or plain text)", path)
	}
	return string(data), nil
}

func (b *briefFile) brief() report.Brief {
	return report.NewBrief(b.FrontMatter.Title, b.Description, b.ReferenceText, b.Options)
}

// Output formats.
const (
	formatDOCX     = "docx"
	formatMarkdown = "md"
	formatHTML     = "html"
	formatLaTeX    = "tex"
	formatJSON     = "json"
)

// writeOutputs writes doc in each format to dir and returns the paths.
func writeOutputs(dir string, formats []string, fm export.FrontMatter, doc *report.Document) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	base := strings.TrimSuffix(export.FileName(fm.Title), ".docx")

	var paths []string
	for _, f := range formats {
		var (
			data []byte
			err  error
		)
		switch strings.ToLower(strings.TrimSpace(f)) {
		case formatDOCX:
			data, err = export.DOCX(fm, doc)
		case formatMarkdown:
			data = []byte(export.Markdown(fm, doc))
		case formatHTML:
			var page string
			page, err = export.HTML(fm, doc)
			data = []byte(page)
		case formatLaTeX:
			data = []byte(export.LaTeX(fm, doc))
		case formatJSON:
			data, err = json.MarshalIndent(doc, "", "  ")
		default:
			return paths, fmt.Errorf("unknown output format %q", f)
		}
		if err != nil {
			return paths, err
		}
		p := filepath.Join(dir, base+"."+strings.ToLower(strings.TrimSpace(f)))
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
