// Package export lays a generated report out as DOCX, Markdown, HTML and
// LaTeX.
package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tharuncoder676/CWS/internal/report"
)

// Student is one author of the report.
type Student struct {
	Name  string `json:"name"   bson:"name"   yaml:"name"`
	RegNo string `json:"reg_no" bson:"reg_no" yaml:"reg_no"`
}

// FrontMatter holds the title page, declaration and certificate fields.
type FrontMatter struct {
	Title            string    `json:"title"             bson:"title"             yaml:"title"`
	CourseCode       string    `json:"course_code"       bson:"course_code"       yaml:"course_code"`
	CourseName       string    `json:"course_name"       bson:"course_name"       yaml:"course_name"`
	BranchName       string    `json:"branch_name"       bson:"branch_name"       yaml:"branch_name"`
	GuideName        string    `json:"guide_name"        bson:"guide_name"        yaml:"guide_name"`
	GuideDesignation string    `json:"guide_designation" bson:"guide_designation" yaml:"guide_designation"`
	ProgramDirector  string    `json:"program_director"  bson:"program_director"  yaml:"program_director"`
	DepartmentName   string    `json:"department_name"   bson:"department_name"   yaml:"department_name"`
	SubmissionDate   string    `json:"submission_date"   bson:"submission_date"   yaml:"submission_date"`
	VivaDate         string    `json:"viva_date"         bson:"viva_date"         yaml:"viva_date"`
	Institution      string    `json:"institution"       bson:"institution"       yaml:"institution"`
	City             string    `json:"city"              bson:"city"              yaml:"city"`
	Degree           string    `json:"degree"            bson:"degree"            yaml:"degree"`
	Students         []Student `json:"students"          bson:"students"          yaml:"students"`
}

const (
	DefaultInstitution = "Saveetha Institute of Medical and Technical Sciences"
	DefaultCity        = "Chennai"
	DefaultDegree      = "BACHELOR OF ENGINEERING"
)

func (fm FrontMatter) withDefaults() FrontMatter {
	if fm.Institution == "" {
		fm.Institution = DefaultInstitution
	}
	if fm.City == "" {
		fm.City = DefaultCity
	}
	if fm.Degree == "" {
		fm.Degree = DefaultDegree
	}
	return fm
}

// voice holds the first-person pronouns for one or several authors.
type voice struct {
	I, My, Me, Am, Student string
}

func (fm FrontMatter) voice() voice {
	if len(fm.Students) == 1 {
		return voice{I: "I", My: "my", Me: "me", Am: "I am", Student: "Student"}
	}
	return voice{I: "We", My: "our", Me: "us", Am: "We are", Student: "Students"}
}

func (v voice) lowerI() string {
	if v.I == "I" {
		return v.I
	}
	return strings.ToLower(v.I)
}

func (fm FrontMatter) studentNames() string {
	names := make([]string, len(fm.Students))
	for i, s := range fm.Students {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

var spaces = regexp.MustCompile(`\s+`)

// FileName is the download name of the DOCX report for title.
func FileName(title string) string {
	base := spaces.ReplaceAllString(strings.TrimSpace(title), "_")
	if base == "" {
		base = "Capstone_Project"
	}
	return strings.ToUpper(base) + "_Full_Report.docx"
}

const (
	keywordPrefix = "Keywords:"
	tocFirstPage  = 6
	tocPageStep   = 2
)

// tocEntry is one chapter row of the table of contents.
type tocEntry struct {
	Number   string
	Title    string
	Sections []string
	Page     string
}

func tableOfContents(doc *report.Document) []tocEntry {
	entries := make([]tocEntry, 0, len(doc.Chapters))
	page := tocFirstPage
	for _, ch := range doc.Chapters {
		secs := make([]string, len(ch.Sections))
		for i, s := range ch.Sections {
			secs[i] = s.Number + " " + s.Title
		}
		entries = append(entries, tocEntry{
			Number:   fmt.Sprintf("%d.", ch.Number),
			Title:    ch.Title,
			Sections: secs,
			Page:     fmt.Sprintf("%02d", page),
		})
		page += tocPageStep
	}
	return entries
}

// splitKeywords separates the label of an abstract keyword line.
func splitKeywords(p string) (string, bool) {
	if !strings.HasPrefix(p, keywordPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(p, keywordPrefix)), true
}

// placeholder is the caption printed where an illustration or diagram goes.
func placeholder(sec report.Section) string {
	switch {
	case sec.ImageURL != "":
		return "[ AI-Generated Illustration: " + sec.Title + " ]"
	case sec.Asset != "":
		return "[ System Diagram: " + sec.Title + " ]"
	default:
		return ""
	}
}
