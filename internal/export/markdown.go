package export

import (
	"fmt"
	"strings"

	"github.com/tharuncoder676/CWS/internal/report"
)

// Markdown renders the report as GitHub-flavoured Markdown. It backs the
// HTML preview and the CLI's .md output.
func Markdown(fm FrontMatter, doc *report.Document) string {
	fm = fm.withDefaults()
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", strings.ToUpper(strings.TrimSpace(fm.Title)))
	b.WriteString("**A CAPSTONE PROJECT REPORT**\n\n")
	if fm.CourseCode != "" || fm.CourseName != "" {
		fmt.Fprintf(&b, "*Submitted in the partial fulfilment for the Course of* **%s – %s**\n\n",
			strings.ToUpper(fm.CourseCode), strings.ToUpper(fm.CourseName))
	}
	if fm.BranchName != "" {
		fmt.Fprintf(&b, "%s IN %s\n\n", fm.Degree, strings.ToUpper(fm.BranchName))
	}
	if len(fm.Students) > 0 {
		b.WriteString("Submitted by\n\n")
		for _, s := range fm.Students {
			fmt.Fprintf(&b, "- %s (%s)\n", s.Name, s.RegNo)
		}
		b.WriteString("\n")
	}
	if fm.GuideName != "" {
		fmt.Fprintf(&b, "Under the Supervision of %s\n\n", fm.GuideName)
	}
	fmt.Fprintf(&b, "%s, %s\n\n", fm.Institution, fm.City)

	b.WriteString("## TABLE OF CONTENTS\n\n")
	b.WriteString("| S.NO | CONTENT | Page. No |\n|---|---|---|\n")
	for _, e := range tableOfContents(doc) {
		content := cellText(e.Title)
		for _, s := range e.Sections {
			content += "<br>" + cellText(s)
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", e.Number, content, e.Page)
	}
	b.WriteString("\n")

	b.WriteString("## ABSTRACT\n\n")
	for _, p := range doc.Abstract {
		if kw, ok := splitKeywords(p); ok {
			fmt.Fprintf(&b, "**%s** *%s*\n\n", keywordPrefix, kw)
			continue
		}
		b.WriteString(p + "\n\n")
	}

	for _, ch := range doc.Chapters {
		fmt.Fprintf(&b, "## CHAPTER %d: %s\n\n", ch.Number, ch.Title)
		for _, sec := range ch.Sections {
			fmt.Fprintf(&b, "### %s %s\n\n", sec.Number, sec.Title)
			if sec.Formula != "" {
				fmt.Fprintf(&b, "*%s*\n\n", sec.Formula)
			}
			for _, it := range sec.Content {
				writeMarkdownItem(&b, it)
			}
			if sec.ImageURL != "" {
				fmt.Fprintf(&b, "![%s](%s)\n\n", sec.Title, sec.ImageURL)
			} else if ph := placeholder(sec); ph != "" {
				fmt.Fprintf(&b, "*%s*\n\n", ph)
			}
		}
	}

	b.WriteString("## REFERENCES\n\n")
	for i, ref := range doc.References {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, ref)
	}
	b.WriteString("## APPENDICES\n\n")
	for _, it := range doc.Appendices {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	return b.String()
}

func writeMarkdownItem(b *strings.Builder, it report.ContentItem) {
	switch {
	case it.List != nil:
		for _, li := range it.List.Items {
			fmt.Fprintf(b, "- %s\n", li)
		}
		b.WriteString("\n")
	case it.Table != nil:
		t := it.Table
		if len(t.Headers) == 0 {
			return
		}
		if t.Caption != "" {
			fmt.Fprintf(b, "**%s**\n\n", t.Caption)
		}
		b.WriteString("|")
		for _, h := range t.Headers {
			b.WriteString(" " + cellText(h) + " |")
		}
		b.WriteString("\n|")
		for range t.Headers {
			b.WriteString("---|")
		}
		b.WriteString("\n")
		for _, row := range t.Rows {
			b.WriteString("|")
			for i := range t.Headers {
				var v string
				if i < len(row) {
					v = row[i]
				}
				b.WriteString(" " + cellText(v) + " |")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	default:
		b.WriteString(it.Text + "\n\n")
	}
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "")

func cellText(s string) string {
	return cellReplacer.Replace(strings.TrimSpace(s))
}
