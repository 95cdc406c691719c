package export

import (
	"fmt"
	"strings"

	"github.com/tharuncoder676/CWS/internal/report"
)

var latexReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"{", `\{`,
	"}", `\}`,
	"$", `\$`,
	"&", `\&`,
	"#", `\#`,
	"%", `\%`,
	"_", `\_`,
	"^", `\textasciicircum{}`,
	"~", `\textasciitilde{}`,
)

// texEscape escapes LaTeX special characters in plain text.
func texEscape(s string) string {
	return latexReplacer.Replace(s)
}

// LaTeX renders the report body handed to the LaTeX compile service. The
// service wraps it in its own preamble.
func LaTeX(fm FrontMatter, doc *report.Document) string {
	fm = fm.withDefaults()
	var b strings.Builder

	b.WriteString("\\begin{titlepage}\n\\centering\n")
	fmt.Fprintf(&b, "{\\Large\\bfseries %s\\par}\n\\vspace{1cm}\n", texEscape(strings.ToUpper(fm.Title)))
	b.WriteString("{\\bfseries A CAPSTONE PROJECT REPORT\\par}\n\\vspace{0.5cm}\n")
	if fm.BranchName != "" {
		fmt.Fprintf(&b, "%s IN %s\\par\n\\vspace{0.5cm}\n", texEscape(fm.Degree), texEscape(strings.ToUpper(fm.BranchName)))
	}
	for _, s := range fm.Students {
		fmt.Fprintf(&b, "%s (%s)\\par\n", texEscape(s.Name), texEscape(s.RegNo))
	}
	if fm.GuideName != "" {
		fmt.Fprintf(&b, "\\vspace{0.5cm}\nUnder the Supervision of %s\\par\n", texEscape(fm.GuideName))
	}
	fmt.Fprintf(&b, "\\vfill\n%s\\par\n%s\\par\n", texEscape(fm.Institution), texEscape(fm.City))
	if fm.SubmissionDate != "" {
		fmt.Fprintf(&b, "%s\\par\n", texEscape(fm.SubmissionDate))
	}
	b.WriteString("\\end{titlepage}\n\n")

	b.WriteString("\\section*{Abstract}\n")
	for _, p := range doc.Abstract {
		if kw, ok := splitKeywords(p); ok {
			fmt.Fprintf(&b, "\\textbf{%s} \\textit{%s}\n\n", keywordPrefix, texEscape(kw))
			continue
		}
		b.WriteString(texEscape(p) + "\n\n")
	}
	b.WriteString("\\tableofcontents\n\\clearpage\n\n")

	for _, ch := range doc.Chapters {
		fmt.Fprintf(&b, "\\chapter{%s}\n", texEscape(ch.Title))
		for _, sec := range ch.Sections {
			fmt.Fprintf(&b, "\\section{%s}\n", texEscape(sec.Title))
			if sec.Formula != "" {
				fmt.Fprintf(&b, "\\begin{center}\\textit{%s}\\end{center}\n", texEscape(sec.Formula))
			}
			for _, it := range sec.Content {
				writeLaTeXItem(&b, it)
			}
			if ph := placeholder(sec); ph != "" {
				fmt.Fprintf(&b, "\\begin{center}\\textit{%s}\\end{center}\n", texEscape(ph))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\\chapter*{References}\n\\begin{enumerate}\n")
	for _, ref := range doc.References {
		fmt.Fprintf(&b, "  \\item %s\n", texEscape(ref))
	}
	b.WriteString("\\end{enumerate}\n\n\\chapter*{Appendices}\n\\begin{itemize}\n")
	for _, it := range doc.Appendices {
		fmt.Fprintf(&b, "  \\item %s\n", texEscape(it))
	}
	b.WriteString("\\end{itemize}\n")
	return b.String()
}

func writeLaTeXItem(b *strings.Builder, it report.ContentItem) {
	switch {
	case it.List != nil:
		b.WriteString("\\begin{itemize}\n")
		for _, li := range it.List.Items {
			fmt.Fprintf(b, "  \\item %s\n", texEscape(li))
		}
		b.WriteString("\\end{itemize}\n")
	case it.Table != nil:
		t := it.Table
		if len(t.Headers) == 0 {
			return
		}
		b.WriteString("\\begin{table}[h]\n\\centering\n")
		fmt.Fprintf(b, "\\begin{tabular}{|%s}\n\\hline\n", strings.Repeat("l|", len(t.Headers)))
		hs := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			hs[i] = "\\textbf{" + texEscape(h) + "}"
		}
		b.WriteString(strings.Join(hs, " & ") + " \\\\\n\\hline\n")
		for _, row := range t.Rows {
			cells := make([]string, len(t.Headers))
			for i := range cells {
				if i < len(row) {
					cells[i] = texEscape(row[i])
				}
			}
			b.WriteString(strings.Join(cells, " & ") + " \\\\\n\\hline\n")
		}
		b.WriteString("\\end{tabular}\n")
		if t.Caption != "" {
			fmt.Fprintf(b, "\\caption{%s}\n", texEscape(t.Caption))
		}
		b.WriteString("\\end{table}\n")
	default:
		b.WriteString(texEscape(it.Text) + "\n\n")
	}
}
