package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/tharuncoder676/CWS/internal/report"
)

// Sizes are in half-points, distances in twips.
const (
	sz12 = 24
	sz14 = 28
	sz16 = 32
	sz20 = 40

	textWidth      = 9072 // 6.30in
	pageWidth      = 11923
	pageHeight     = 16834
	line108        = 259
	line12         = 288
	line15         = 360
	line158        = 379
	listIndent     = 432
	refIndent      = 576
	fontName       = "Times New Roman"
	placeholderInk = "666666"
	formulaInk     = "4F46E5"
)

const (
	alignLeft    = "left"
	alignCenter  = "center"
	alignRight   = "right"
	alignJustify = "both"
)

type run struct {
	text   string
	bold   bool
	italic bool
	size   int
	color  string
	tab    bool
	page   bool // page break
}

func txt(s string) run  { return run{text: s} }
func bold(s string) run { return run{text: s, bold: true} }

type pstyle struct {
	align         string
	before, after int
	line          int
	indent, hang  int
	rightTab      bool
	keepWithNext  bool
}

// docxWriter accumulates WordprocessingML body content.
type docxWriter struct {
	body bytes.Buffer
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func (w *docxWriter) para(st pstyle, runs ...run) {
	b := &w.body
	b.WriteString("<w:p><w:pPr>")
	if st.keepWithNext {
		b.WriteString("<w:keepNext/>")
	}
	if st.rightTab {
		fmt.Fprintf(b, `<w:tabs><w:tab w:val="right" w:pos="%d"/></w:tabs>`, textWidth)
	}
	fmt.Fprintf(b, `<w:spacing w:before="%d" w:after="%d"`, st.before, st.after)
	if st.line > 0 {
		fmt.Fprintf(b, ` w:line="%d" w:lineRule="auto"`, st.line)
	}
	b.WriteString("/>")
	if st.indent > 0 || st.hang > 0 {
		fmt.Fprintf(b, `<w:ind w:left="%d" w:hanging="%d"/>`, st.indent, st.hang)
	}
	align := st.align
	if align == "" {
		align = alignLeft
	}
	fmt.Fprintf(b, `<w:jc w:val="%s"/>`, align)
	b.WriteString("</w:pPr>")
	for _, r := range runs {
		w.run(r)
	}
	b.WriteString("</w:p>")
}

func (w *docxWriter) run(r run) {
	b := &w.body
	b.WriteString("<w:r><w:rPr>")
	if r.bold {
		b.WriteString("<w:b/>")
	}
	if r.italic {
		b.WriteString("<w:i/>")
	}
	if r.color != "" {
		fmt.Fprintf(b, `<w:color w:val="%s"/>`, r.color)
	}
	size := r.size
	if size == 0 {
		size = sz14
	}
	fmt.Fprintf(b, `<w:sz w:val="%d"/><w:szCs w:val="%d"/>`, size, size)
	b.WriteString("</w:rPr>")
	switch {
	case r.page:
		b.WriteString(`<w:br w:type="page"/>`)
	case r.tab:
		b.WriteString("<w:tab/>")
	default:
		fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t>`, escape(r.text))
	}
	b.WriteString("</w:r>")
}

func (w *docxWriter) blank(n int) {
	for i := 0; i < n; i++ {
		w.para(pstyle{})
	}
}

func (w *docxWriter) pageBreak() {
	w.body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
}

func (w *docxWriter) center(before, after int, runs ...run) {
	w.para(pstyle{align: alignCenter, before: before, after: after}, runs...)
}

// split writes a left and a right aligned text on one line.
func (w *docxWriter) split(left, right string, isBold bool, before int) {
	w.para(pstyle{rightTab: true, before: before},
		run{text: left, bold: isBold}, run{tab: true}, run{text: right, bold: isBold})
}

type cell struct {
	paras []cellPara
	width int // percent
}

type cellPara struct {
	align string
	runs  []run
}

func (w *docxWriter) table(header []cell, rows [][]cell) {
	b := &w.body
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="5000" w:type="pct"/><w:tblBorders>`)
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		fmt.Fprintf(b, `<w:%s w:val="single" w:sz="4" w:space="0" w:color="000000"/>`, side)
	}
	b.WriteString(`</w:tblBorders></w:tblPr>`)
	writeRow := func(cells []cell, isHeader bool) {
		b.WriteString("<w:tr>")
		if isHeader {
			b.WriteString("<w:trPr><w:tblHeader/></w:trPr>")
		}
		for _, c := range cells {
			fmt.Fprintf(b, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="pct"/></w:tcPr>`, c.width*50)
			if len(c.paras) == 0 {
				w.para(pstyle{})
			}
			for _, p := range c.paras {
				w.para(pstyle{align: p.align, before: 40, after: 40}, p.runs...)
			}
			b.WriteString("</w:tc>")
		}
		b.WriteString("</w:tr>")
	}
	writeRow(header, true)
	for _, r := range rows {
		writeRow(r, false)
	}
	b.WriteString("</w:tbl>")
}

// DOCX renders the full report as a Word document.
func DOCX(fm FrontMatter, doc *report.Document) ([]byte, error) {
	fm = fm.withDefaults()
	w := &docxWriter{}
	title := strings.ToUpper(strings.TrimSpace(fm.Title))

	w.titlePage(fm, title)
	w.pageBreak()
	w.declaration(fm, title)
	w.pageBreak()
	w.certificate(fm, title)
	w.pageBreak()
	w.acknowledgement(fm)
	w.pageBreak()
	w.contents(doc)
	w.pageBreak()
	w.abstract(title, doc.Abstract)
	w.pageBreak()
	for i, ch := range doc.Chapters {
		if i > 0 {
			w.blank(1)
		}
		w.chapter(ch)
	}
	w.pageBreak()
	w.references(doc.References)
	w.pageBreak()
	w.appendices(doc.Appendices)

	return pack(fm.Title, w.body.Bytes())
}

func (w *docxWriter) titlePage(fm FrontMatter, title string) {
	w.blank(2)
	w.center(300, 300, run{text: title, bold: true, size: sz16})
	w.blank(2)
	w.center(300, 0, bold("A CAPSTONE PROJECT REPORT"))
	w.blank(1)
	w.center(300, 0, run{text: "Submitted in the partial fulfilment for the Course of", italic: true})
	w.blank(1)
	w.center(0, 0, bold(strings.ToUpper(fm.CourseCode)+" – "+strings.ToUpper(fm.CourseName)))
	w.blank(1)
	w.para(pstyle{align: alignCenter, line: line158},
		run{text: "to the award of the degree of ", italic: true}, bold(fm.Degree+" IN"))
	w.center(0, 0, bold(strings.ToUpper(fm.BranchName)))
	w.blank(2)
	w.center(0, 0, bold("Submitted by"))
	for _, s := range fm.Students {
		w.para(pstyle{align: alignCenter, line: line12}, bold(s.Name+" ("+s.RegNo+")"))
	}
	w.blank(1)
	w.para(pstyle{align: alignCenter, before: 300, line: line158}, bold("Under the Supervision of "+fm.GuideName))
	w.blank(2)
	w.center(80, 0, bold(fm.Institution))
	w.center(0, 0, bold(fm.City))
	w.blank(1)
	w.center(0, 0, bold(fm.SubmissionDate))
}

func (w *docxWriter) declaration(fm FrontMatter, title string) {
	v := fm.voice()
	w.blank(1)
	w.center(0, 300, run{text: "DECLARATION", bold: true, size: sz16})
	w.blank(1)
	runs := []run{txt(v.I + ", ")}
	for i, s := range fm.Students {
		if i > 0 {
			runs = append(runs, txt(", "))
		}
		runs = append(runs, bold(s.Name))
	}
	runs = append(runs,
		txt(" of the "), bold(fm.DepartmentName),
		txt(", "+fm.Institution+", "+fm.City+", hereby declare that the Capstone Project Work entitled ‘"),
		bold(title),
		txt("’ is the result of "+v.My+" own bonafide efforts. To the best of "+v.My+
			" knowledge, the work presented herein is original, accurate, and has been carried out in accordance with principles of engineering ethics."),
	)
	w.para(pstyle{align: alignJustify, line: line15}, runs...)
	w.blank(1)
	w.para(pstyle{}, txt("Place: "+fm.City))
	w.para(pstyle{before: 200}, txt("Date: "+fm.SubmissionDate))
	w.blank(2)
	w.para(pstyle{align: alignRight, after: 80}, txt("Signature of the "+v.Student+" with Names"))
	for _, s := range fm.Students {
		w.para(pstyle{align: alignRight, after: 20}, bold(s.Name))
		w.para(pstyle{align: alignRight, after: 60}, run{text: "(" + s.RegNo + ")", size: sz12})
	}
}

func (w *docxWriter) certificate(fm FrontMatter, title string) {
	w.blank(1)
	w.center(0, 300, run{text: "BONAFIDE CERTIFICATE", bold: true, size: sz16})
	w.blank(1)
	runs := []run{txt("This is to certify that the Capstone Project entitled “"), bold(title), txt("” has been carried out by ")}
	for i, s := range fm.Students {
		if i > 0 {
			runs = append(runs, txt(", "))
		}
		runs = append(runs, bold(s.Name+" ("+s.RegNo+")"))
	}
	runs = append(runs,
		txt(" under the supervision of "), bold(fm.GuideName),
		txt(" and is submitted in partial fulfilment of the requirements for the current semester of the B.Tech "),
		bold(strings.ToUpper(fm.BranchName)),
		txt(" program at "+fm.Institution+", "+fm.City+"."),
	)
	w.para(pstyle{align: alignJustify, line: line15}, runs...)
	w.blank(4)
	w.split("SIGNATURE", "SIGNATURE", false, 0)
	w.split(fm.ProgramDirector, fm.GuideName, true, 200)
	w.split("Program Director", fm.GuideDesignation, true, 120)
	w.split(fm.DepartmentName, fm.DepartmentName, false, 120)
	w.split(fm.Institution, fm.Institution, false, 120)
	w.blank(2)
	w.para(pstyle{}, txt("Submitted for the Project work Viva-Voce held on ____________ "+fm.VivaDate))
	w.blank(3)
	w.split("INTERNAL EXAMINER", "EXTERNAL EXAMINER", true, 0)
}

func (w *docxWriter) acknowledgement(fm FrontMatter) {
	v := fm.voice()
	st := pstyle{align: alignJustify, after: 120, line: line15}
	w.blank(1)
	w.center(0, 300, run{text: "ACKNOWLEDGEMENT", bold: true, size: sz16})
	w.blank(1)
	w.para(st, txt(v.I+" would like to express "+v.My+" heartfelt gratitude to all those who supported and guided "+v.Me+
		" throughout the successful completion of "+v.My+" Capstone Project. "+v.Am+" deeply thankful to the leadership of "),
		bold(fm.Institution),
		txt(" for their constant encouragement and for providing a motivating academic environment."))
	w.para(st, txt(v.I+" sincerely thank "+v.My+" Program Director "), bold(fm.ProgramDirector),
		txt(" and the "), bold(fm.DepartmentName),
		txt(" for their continuous support, valuable guidance, and constant motivation."))
	w.para(st, txt(v.Am+" especially indebted to "+v.My+" guide, "), bold(fm.GuideName),
		txt(" for the creative suggestions, consistent feedback, and unwavering support during each stage of the project. "+
			v.I+" also express "+v.My+" gratitude to the Project Coordinators, Review Panel Members, and the entire faculty team for their constructive feedback. Finally, "+
			v.lowerI()+" thank all faculty members, lab technicians, "+v.My+" parents, and friends for their continuous encouragement and support."))
	w.blank(3)
	w.para(pstyle{align: alignRight, after: 80}, txt("Signature with Student Name"))
	for _, s := range fm.Students {
		w.para(pstyle{align: alignRight, after: 60}, txt(s.Name+" ["+s.RegNo+"]"))
	}
}

func (w *docxWriter) contents(doc *report.Document) {
	w.center(0, 300, run{text: "TABLE OF CONTENTS", bold: true, size: sz20})
	header := []cell{
		{width: 12, paras: []cellPara{{align: alignCenter, runs: []run{bold("S.NO")}}}},
		{width: 70, paras: []cellPara{{runs: []run{bold("CONTENT")}}}},
		{width: 18, paras: []cellPara{{runs: []run{bold("Page. No")}}}},
	}
	var rows [][]cell
	for _, e := range tableOfContents(doc) {
		content := []cellPara{{runs: []run{{text: e.Title, bold: true, size: sz12}}}}
		for _, s := range e.Sections {
			content = append(content, cellPara{runs: []run{{text: s, size: sz12}}})
		}
		rows = append(rows, []cell{
			{width: 12, paras: []cellPara{{runs: []run{bold(e.Number)}}}},
			{width: 70, paras: content},
			{width: 18, paras: []cellPara{{runs: []run{bold(e.Page)}}}},
		})
	}
	w.table(header, rows)
}

func (w *docxWriter) abstract(title string, paras []string) {
	st := pstyle{after: 100, line: line108}
	w.center(0, 200, run{text: "ABSTRACT", bold: true, size: sz20})
	w.blank(1)
	w.para(st, bold(title))
	for _, p := range paras {
		if kw, ok := splitKeywords(p); ok {
			w.para(st, bold(keywordPrefix+" "), run{text: kw, italic: true})
			continue
		}
		w.para(st, txt(p))
	}
}

func (w *docxWriter) chapter(ch report.Chapter) {
	st := pstyle{after: 100, line: line108}
	w.para(pstyle{align: alignCenter, after: 100, line: line108, keepWithNext: true}, bold(fmt.Sprintf("CHAPTER %d", ch.Number)))
	w.para(pstyle{after: 100, line: line108, keepWithNext: true}, bold(ch.Title))
	w.blank(1)
	for _, sec := range ch.Sections {
		w.para(pstyle{after: 100, line: line108, keepWithNext: true}, bold(sec.Number+" "+sec.Title))
		if sec.Formula != "" {
			w.para(pstyle{align: alignCenter, before: 200, after: 200}, run{text: sec.Formula, italic: true, color: formulaInk})
		}
		for _, it := range sec.Content {
			switch {
			case it.List != nil:
				for _, li := range it.List.Items {
					w.para(pstyle{after: 60, line: line108, indent: listIndent}, txt("• "+li))
				}
				w.blank(1)
			case it.Table != nil:
				w.center(120, 80, run{text: it.Table.Caption, bold: true, size: sz12})
				w.dataTable(it.Table)
				w.blank(1)
			default:
				st.align = alignJustify
				w.para(st, txt(it.Text))
			}
		}
		if ph := placeholder(sec); ph != "" {
			w.para(pstyle{align: alignCenter, before: 100, after: 100}, run{text: " " + ph + " ", italic: true, color: placeholderInk})
		}
	}
}

func (w *docxWriter) dataTable(t *report.TableBlock) {
	n := len(t.Headers)
	if n == 0 {
		return
	}
	width := 100 / n
	header := make([]cell, n)
	for i, h := range t.Headers {
		header[i] = cell{width: width, paras: []cellPara{{align: alignCenter, runs: []run{bold(h)}}}}
	}
	rows := make([][]cell, 0, len(t.Rows))
	for _, r := range t.Rows {
		cells := make([]cell, n)
		for i := range cells {
			var v string
			if i < len(r) {
				v = r[i]
			}
			cells[i] = cell{width: width, paras: []cellPara{{runs: []run{txt(v)}}}}
		}
		rows = append(rows, cells)
	}
	w.table(header, rows)
}

func (w *docxWriter) references(refs []string) {
	w.center(0, 200, run{text: "REFERENCES", bold: true, size: sz20})
	w.blank(1)
	for i, ref := range refs {
		w.para(pstyle{after: 80, line: line108, indent: refIndent, hang: refIndent},
			run{text: fmt.Sprintf("[%d] %s", i+1, ref), size: sz12})
	}
}

func (w *docxWriter) appendices(items []string) {
	w.center(0, 200, run{text: "APPENDICES", bold: true, size: sz20})
	w.blank(1)
	for _, it := range items {
		w.para(pstyle{after: 100, line: line108}, txt("• "+it))
	}
}

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
<Override PartName="/word/footer1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`

	rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer" Target="footer1.xml"/>
</Relationships>`

	stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="` + fontName + `" w:hAnsi="` + fontName + `" w:cs="` + fontName + `"/><w:sz w:val="28"/><w:szCs w:val="28"/></w:rPr></w:rPrDefault>
<w:pPrDefault><w:pPr><w:spacing w:after="0" w:line="240" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
</w:styles>`

	footerXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:ftr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:rPr><w:sz w:val="24"/></w:rPr><w:fldChar w:fldCharType="begin"/></w:r><w:r><w:rPr><w:sz w:val="24"/></w:rPr><w:instrText xml:space="preserve"> PAGE </w:instrText></w:r><w:r><w:rPr><w:sz w:val="24"/></w:rPr><w:fldChar w:fldCharType="separate"/></w:r><w:r><w:rPr><w:sz w:val="24"/></w:rPr><w:t>1</w:t></w:r><w:r><w:rPr><w:sz w:val="24"/></w:rPr><w:fldChar w:fldCharType="end"/></w:r></w:p>
</w:ftr>`
)

func documentXML(body []byte) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>`)
	b.Write(body)
	fmt.Fprintf(&b, `<w:sectPr><w:footerReference w:type="default" r:id="rId2"/><w:pgSz w:w="%d" w:h="%d"/>`, pageWidth, pageHeight)
	b.WriteString(`<w:pgMar w:top="1512" w:right="1382" w:bottom="1728" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>`)
	b.WriteString(`<w:pgBorders w:offsetFrom="text">`)
	for _, side := range []string{"top", "left", "bottom", "right"} {
		fmt.Fprintf(&b, `<w:%s w:val="single" w:sz="6" w:space="24" w:color="000000"/>`, side)
	}
	b.WriteString(`</w:pgBorders></w:sectPr></w:body></w:document>`)
	return b.Bytes()
}

func coreXML(title string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>` + escape(title) + `</dc:title>
<dc:creator>Capstone Report Generator</dc:creator>
</cp:coreProperties>`)
}

func pack(title string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(rootRelsXML)},
		{"docProps/core.xml", coreXML(title)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/footer1.xml", []byte(footerXML)},
		{"word/document.xml", documentXML(body)},
	}
	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("docx %s: %w", p.name, err)
		}
		if _, err := f.Write(p.data); err != nil {
			return nil, fmt.Errorf("docx %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("docx: %w", err)
	}
	return buf.Bytes(), nil
}
