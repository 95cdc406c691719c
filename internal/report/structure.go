package report

import "fmt"

// ChapterCount is the fixed number of chapters in every report.
const ChapterCount = 10

// ChapterTitles is the closed enumeration of chapter headings, in order.
var ChapterTitles = [ChapterCount]string{
	"Introduction",
	"Objectives",
	"Problem Statement",
	"Methodology / Working Principle",
	"Key Elements / Data / Components",
	"Detailed Analysis",
	"Results and Discussion",
	"Future Scope",
	"Conclusion",
	"References",
}

// technicalChapters may carry a formula when equations are enabled.
var technicalChapters = map[int]bool{4: true, 5: true, 6: true}

// IsTechnicalChapter reports whether chapter n belongs to the technical subset.
func IsTechnicalChapter(n int) bool { return technicalChapters[n] }

var defaultSectionTitles = [ChapterCount][3]string{
	{"Background of Study", "Problem Definition", "Scope and Objectives"},
	{"Primary Objectives", "Secondary Goals", "Expected Deliverables"},
	{"Current Challenges", "Research Gap", "Proposed Solution"},
	{"Theoretical Framework", "Methodological Approach", "Tools and Technologies"},
	{"Core Components", "Data Acquisition", "System Architecture"},
	{"Technical Evaluation", "Comparative Study", "Performance Assessment"},
	{"Experimental Results", "Result Validation", "Discussion"},
	{"Future Enhancements", "Scalability Plans", "Industry Applications"},
	{"Summary", "Key Contributions", "Concluding Remarks"},
	{"Primary Sources", "Secondary Literature", "Online Resources"},
}

// DefaultStructure returns the static 10 x 3 chapter plan. Each call returns a
// fresh copy.
func DefaultStructure() Structure {
	chapters := make([]ChapterDef, ChapterCount)
	for i, title := range ChapterTitles {
		secs := make([]SectionDef, len(defaultSectionTitles[i]))
		for j, st := range defaultSectionTitles[i] {
			secs[j] = SectionDef{Number: SectionNumber(i+1, j+1), Title: st}
		}
		chapters[i] = ChapterDef{Number: i + 1, Title: title, Sections: secs}
	}
	return Structure{Chapters: chapters}
}

// SectionNumber formats the "chapter.index" section number.
func SectionNumber(chapter, index int) string {
	return fmt.Sprintf("%d.%d", chapter, index)
}

// MaxSectionsPerChapter caps a model-produced chapter; extra sections are
// dropped.
const MaxSectionsPerChapter = 5

// Normalize enforces the fixed chapter count and titles on a model-produced
// structure, keeps at most MaxSectionsPerChapter sections per chapter and
// fills missing section numbers. It fails when the structure does not have
// exactly ten chapters or a chapter has no sections.
func (s Structure) Normalize() (Structure, error) {
	if len(s.Chapters) != ChapterCount {
		return Structure{}, fmt.Errorf("structure has %d chapters, want %d", len(s.Chapters), ChapterCount)
	}
	out := Structure{Chapters: make([]ChapterDef, ChapterCount)}
	for i, ch := range s.Chapters {
		if len(ch.Sections) == 0 {
			return Structure{}, fmt.Errorf("chapter %d has no sections", i+1)
		}
		if len(ch.Sections) > MaxSectionsPerChapter {
			ch.Sections = ch.Sections[:MaxSectionsPerChapter]
		}
		secs := make([]SectionDef, 0, len(ch.Sections))
		for j, sec := range ch.Sections {
			if sec.Title == "" {
				return Structure{}, fmt.Errorf("section %d of chapter %d has no title", j+1, i+1)
			}
			sec.Number = SectionNumber(i+1, j+1)
			secs = append(secs, sec)
		}
		out.Chapters[i] = ChapterDef{Number: i + 1, Title: ChapterTitles[i], Sections: secs}
	}
	return out, nil
}
