package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tharuncoder676/CWS/internal/report"
)

func sampleFrontMatter(students ...Student) FrontMatter {
	return FrontMatter{
		Title:            "Smart Irrigation & Soil Sensing",
		CourseCode:       "CSA1234",
		CourseName:       "Cloud Computing",
		BranchName:       "Computer Science",
		GuideName:        "Dr. R. Kumar",
		GuideDesignation: "Professor",
		ProgramDirector:  "Dr. S. Rao",
		DepartmentName:   "Department of CSE",
		SubmissionDate:   "March 2025",
		Students:         students,
	}
}

func sampleDoc(t *testing.T) *report.Document {
	t.Helper()
	doc := report.Template("Smart Irrigation & Soil Sensing", "field moisture monitoring")
	doc.Chapters[0].Sections[0].ImageURL = "https://img.example/a.png"
	doc.Chapters[1].Sections[0].Formula = "E = m × c²"
	return &doc
}

func readPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func wellFormed(t *testing.T, s string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(s))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err)
	}
}

func TestDOCXPackage(t *testing.T) {
	data, err := DOCX(sampleFrontMatter(Student{Name: "Asha", RegNo: "192211001"}), sampleDoc(t))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		"[Content_Types].xml", "_rels/.rels", "docProps/core.xml",
		"word/_rels/document.xml.rels", "word/styles.xml", "word/footer1.xml", "word/document.xml",
	}, names)

	body := readPart(t, data, "word/document.xml")
	wellFormed(t, body)
	wellFormed(t, readPart(t, data, "docProps/core.xml"))

	for _, want := range []string{
		"SMART IRRIGATION &amp; SOIL SENSING",
		"A CAPSTONE PROJECT REPORT",
		"CSA1234 – CLOUD COMPUTING",
		"Asha (192211001)",
		"DECLARATION",
		"BONAFIDE CERTIFICATE",
		"ACKNOWLEDGEMENT",
		"TABLE OF CONTENTS",
		"ABSTRACT",
		"CHAPTER 1",
		"CHAPTER 10",
		"REFERENCES",
		"APPENDICES",
		"[1] Author, A. (2024)",
		"INTERNAL EXAMINER",
		"E = m × c²",
		"[ AI-Generated Illustration: ",
		DefaultInstitution,
	} {
		assert.Contains(t, body, want)
	}
}

func TestDOCXVoice(t *testing.T) {
	one, err := DOCX(sampleFrontMatter(Student{Name: "Asha", RegNo: "1"}), sampleDoc(t))
	require.NoError(t, err)
	body := readPart(t, one, "word/document.xml")
	assert.Contains(t, body, ">I, <")
	assert.Contains(t, body, "is the result of my own bonafide efforts")
	assert.Contains(t, body, "Signature of the Student with Names")

	many, err := DOCX(sampleFrontMatter(Student{Name: "Asha", RegNo: "1"}, Student{Name: "Ravi", RegNo: "2"}), sampleDoc(t))
	require.NoError(t, err)
	body = readPart(t, many, "word/document.xml")
	assert.Contains(t, body, ">We, <")
	assert.Contains(t, body, "is the result of our own bonafide efforts")
	assert.Contains(t, body, "Signature of the Students with Names")
	assert.Contains(t, body, "Finally, we thank")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "SMART_IRRIGATION_SYSTEM_Full_Report.docx", FileName("  Smart  irrigation\tsystem "))
	assert.Equal(t, "CAPSTONE_PROJECT_Full_Report.docx", FileName(""))
}

func TestTableOfContents(t *testing.T) {
	entries := tableOfContents(sampleDoc(t))
	require.Len(t, entries, 10)
	assert.Equal(t, "1.", entries[0].Number)
	assert.Equal(t, "06", entries[0].Page)
	assert.Equal(t, "08", entries[1].Page)
	assert.Equal(t, "24", entries[9].Page)
	assert.Len(t, entries[0].Sections, 3)
	assert.True(t, strings.HasPrefix(entries[0].Sections[0], "1.1 "))
}

func TestMarkdown(t *testing.T) {
	out := Markdown(sampleFrontMatter(Student{Name: "Asha", RegNo: "1"}), sampleDoc(t))
	assert.Contains(t, out, "# SMART IRRIGATION & SOIL SENSING")
	assert.Contains(t, out, "| S.NO | CONTENT | Page. No |")
	assert.Contains(t, out, "## CHAPTER 1: ")
	assert.Contains(t, out, "### 1.1 ")
	assert.Contains(t, out, "**Keywords:** *")
	assert.Contains(t, out, "![")
	assert.Contains(t, out, "[1] Author, A. (2024)")
}

func TestMarkdownEscapesTableCells(t *testing.T) {
	doc := &report.Document{Chapters: []report.Chapter{{
		Number: 1, Title: "Intro",
		Sections: []report.Section{{Number: "1.1", Title: "A", Content: []report.ContentItem{
			{Table: &report.TableBlock{Caption: "Cmp", Headers: []string{"k", "v"}, Rows: [][]string{{"a|b"}}}},
		}}},
	}}}
	out := Markdown(FrontMatter{Title: "x"}, doc)
	assert.Contains(t, out, "| k | v |\n|---|---|\n| a\\|b |  |\n")
}

func TestHTML(t *testing.T) {
	out, err := HTML(sampleFrontMatter(Student{Name: "Asha", RegNo: "1"}), sampleDoc(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Smart Irrigation &amp; Soil Sensing</title>")
	assert.Contains(t, out, "<h2>ABSTRACT</h2>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<img src=\"https://img.example/a.png\"")
	assert.True(t, strings.HasSuffix(out, "</body></html>\n"))
}

func TestLaTeXEscapes(t *testing.T) {
	assert.Equal(t, `50\% \& \$5 a\_b \{x\} \textbackslash{}n`, texEscape(`50% & $5 a_b {x} \n`))

	out := LaTeX(sampleFrontMatter(Student{Name: "Asha", RegNo: "1"}), sampleDoc(t))
	assert.Contains(t, out, `SMART IRRIGATION \& SOIL SENSING`)
	assert.Contains(t, out, `\chapter{`)
	assert.Contains(t, out, `\begin{tabular}`)
	assert.Equal(t, 10, strings.Count(out, `\chapter{`))
}

func TestLaTeXClient(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		switch r.URL.Path {
		case "/api/compile-pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.7"))
		case "/api/compile-tex":
			_ = json.NewEncoder(w).Encode(map[string]string{"tex_source": "\\documentclass{report}"})
		}
	}))
	defer srv.Close()

	c := NewLaTeXClient(srv.URL + "/")
	pdf, err := c.CompilePDF(context.Background(), "body", "Title")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))
	assert.Equal(t, map[string]string{"latex_body": "body", "title": "Title"}, got)

	tex, err := c.CompileTex(context.Background(), "body", "Title")
	require.NoError(t, err)
	assert.Equal(t, "\\documentclass{report}", tex)
}

func TestLaTeXClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "compile error: missing $", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewLaTeXClient(srv.URL).CompilePDF(context.Background(), "b", "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latex-service /api/compile-pdf returned 422")
	assert.Contains(t, err.Error(), "missing $")
}

func TestDOCXText(t *testing.T) {
	doc := report.Template("Smart Irrigation", "Soil moisture sensing.")
	data, err := DOCX(sampleFrontMatter(Student{Name: "Asha K", RegNo: "192211001"}), &doc)
	require.NoError(t, err)

	text, err := DOCXText(data)
	require.NoError(t, err)
	assert.Contains(t, text, "SMART IRRIGATION & SOIL SENSING")
	assert.Contains(t, text, "Asha K")
	assert.Contains(t, text, "CHAPTER 10")
	assert.NotContains(t, text, "<w:")
	for _, line := range strings.Split(text, "\n") {
		assert.False(t, strings.HasPrefix(line, "\t"), line)
	}

	_, err = DOCXText([]byte("plain text"))
	assert.ErrorIs(t, err, ErrNotDOCX)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("word/other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = DOCXText(buf.Bytes())
	assert.ErrorIs(t, err, ErrNotDOCX)
}
