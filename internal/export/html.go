package export

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/tharuncoder676/CWS/internal/report"
)

// Unsafe rendering keeps the <br> separators inside table-of-contents cells.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

const previewHead = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>%s</title>
<style>
body{font-family:"Times New Roman",serif;max-width:48rem;margin:2rem auto;line-height:1.5;text-align:justify}
h1,h2{text-align:center}
table{border-collapse:collapse;width:100%%;margin:1rem 0}
th,td{border:1px solid #000;padding:.25rem .5rem;text-align:left}
img{max-width:100%%}
</style></head><body>
`

// HTML renders the report preview page.
func HTML(fm FrontMatter, doc *report.Document) (string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, previewHead, escape(fm.Title))
	if err := md.Convert([]byte(Markdown(fm, doc)), &buf); err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	buf.WriteString("</body></html>\n")
	return buf.String(), nil
}
