package pipeline

import (
	"fmt"
	"strings"

	"github.com/tharuncoder676/CWS/internal/report"
)

// Domains is the closed set of academic domains a brief can be classified into.
var Domains = []string{
	"Computer Science",
	"Information Technology",
	"Artificial Intelligence",
	"Data Science",
	"Cyber Security",
	"Bioinformatics",
	"Biology",
	"Medical",
	"Electronics and Communication",
	"Electrical Engineering",
	"Mechanical Engineering",
	"Civil Engineering",
	"Law",
	"Business Management",
	"Psychology",
	"Education",
	"Social Science",
	"Other",
}

const (
	sectionFactsLimit  = 8000
	abstractFactsLimit = 4000
)

func classifyPrompt(title, description string) string {
	var b strings.Builder
	b.WriteString("You are an academic domain classifier. Identify the single field this project belongs to.\n")
	b.WriteString("Do not write report content and do not explain your reasoning. Answer with JSON only.\n\n")
	b.WriteString("Allowed domains:\n")
	for _, d := range Domains {
		b.WriteString("- " + d + "\n")
	}
	b.WriteString(`
Disambiguation:
- Bioinformatics only when biological data is analysed with computational methods (genomes, protein structure, sequencing algorithms).
- Computer Science when the work is software, algorithms, databases, applications or networking without biological datasets.
- Medical when the focus is disease, diagnosis, treatment, patients or clinical use.
- Electronics and Communication for circuits, signals, sensors, microcontrollers and communication hardware.
- When biology and computing both appear, analysis of biological datasets is Bioinformatics and a plain software application is Computer Science.
- Decide by the academic purpose of the project, not by isolated keywords.

Respond with:
{"domain": "<one allowed domain>", "confidence": <number between 0 and 1>}

`)
	fmt.Fprintf(&b, "TITLE: %s\nDESCRIPTION: %s\n", title, description)
	return b.String()
}

func analyzePrompt(title, description, domain string) string {
	return fmt.Sprintf(`You analyse a capstone project inside a fixed academic domain.
The domain is locked to %[3]q. Never propose a different domain; every answer must stay inside it.

TITLE: %[1]q
DESCRIPTION: %[2]q

Produce:
1. sub_domain: the specialisation within %[3]s.
2. keywords: 10 to 15 technical keywords from %[3]s that define this project.
3. writing_style: one of Technical, Legal, Descriptive, Analytical, Experimental, Mixed.
4. is_build_project: true when the project builds a system, application or device.
   is_experimental: true when it relies on lab work, trials or measured experiments.
   is_theoretical: true when it is a survey or theoretical study.
5. rules: 5 to 8 strict writing rules every chapter must follow.
6. forbidden_topics: at least 5 topics outside %[3]s that must not appear.
7. internal_meaning: one paragraph on the academic purpose and scope of the project.

Respond with JSON only:
{"detected_domain": %[3]q, "sub_domain": "", "keywords": [], "writing_style": "",
 "is_build_project": false, "is_experimental": false, "is_theoretical": false,
 "rules": [], "forbidden_topics": [], "internal_meaning": ""}
`, title, description, domain)
}

func factsPrompt(title, description string, a report.Analysis) string {
	return fmt.Sprintf(`You prepare reference material that another writer will use to draft a report. You are not writing the report.

TOPIC: %[1]s
DETAILS: %[2]s
DOMAIN: %[3]s
KEY TERMS: %[4]s

Write dense, neutral paragraphs about %[1]q itself, not about %[3]s in general. Name concrete algorithms, standards, tools and protocols. Avoid lists, filler and conversational language.

Cover, in this order, three to five paragraphs each:
DEFINITION AND CORE CONCEPTS
THEORETICAL BACKGROUND
KEY TERMINOLOGY (10 to 15 terms with explanations)
WORKING PRINCIPLES AND MECHANISMS
COMPONENTS AND TECHNOLOGIES
REAL WORLD APPLICATIONS
LIMITATIONS AND CHALLENGES
METHODS, METRICS AND FORMULAS

If you are not sure a statement is true, leave it out. Do not invent technologies or results.
Return plain text only, without markdown or heading symbols.
`, title, description, a.DetectedDomain, strings.Join(a.Keywords, ", "))
}

func projectKind(t report.ProjectType) string {
	switch {
	case t.IsExperimental:
		return "EXPERIMENTAL"
	case t.IsBuildProject:
		return "BUILD"
	default:
		return "NON-BUILD"
	}
}

func structurePrompt(b report.Brief, a report.Analysis) string {
	var sb strings.Builder
	if b.ReferenceText != "" {
		sb.WriteString("Use the reference document below for the shape of its table of contents only.\n")
		sb.WriteString("Do not copy any of its content. Adapt every heading to the project and domain below.\n")
		sb.WriteString("----- REFERENCE -----\n")
		sb.WriteString(report.Truncate(b.ReferenceText, report.MaxReferenceText))
		sb.WriteString("\n----- END REFERENCE -----\n\n")
	} else {
		fmt.Fprintf(&sb, "Design a detailed table of contents for a %s capstone report.\n\n", a.DetectedDomain)
	}
	sub := a.SubDomain
	if sub == "" {
		sub = a.DetectedDomain
	}
	fmt.Fprintf(&sb, "Project: %q\nDomain: %s\nSub-domain: %s\nProject type: %s\n\n", b.Title, a.DetectedDomain, sub, projectKind(a.ProjectType))
	sb.WriteString("Requirements:\n")
	sb.WriteString("1. Exactly 10 chapters with these headings, in this order:\n")
	for i, t := range report.ChapterTitles {
		fmt.Fprintf(&sb, "   Chapter %d: %s\n", i+1, t)
	}
	sb.WriteString("2. Each chapter has three sections titled specifically for the project.\n")
	sb.WriteString("3. At least two sections, usually in methodology or analysis, describe a workflow or architecture that suits a diagram.\n")
	if b.Options.UseAIImages {
		sb.WriteString("4. For the single most visual section of every chapter add an \"image_prompt\": a vivid description suitable for an illustration model.\n")
	}
	sb.WriteString(`
Respond with JSON only:
{"chapters":[{"num":1,"title":"Introduction","sections":[{"num":"1.1","title":"...","image_prompt":""},{"num":"1.2","title":"..."},{"num":"1.3","title":"..."}]}]}
`)
	return sb.String()
}

// SectionInput is everything a section prompt is built from.
type SectionInput struct {
	Def         report.SectionDef
	Chapter     report.ChapterDef
	Title       string
	Description string
	Analysis    report.Analysis
	Facts       string
	Equations   bool
}

func (in SectionInput) wantsFormula() bool {
	return in.Equations && report.IsTechnicalChapter(in.Chapter.Number)
}

func sectionPrompt(in SectionInput) string {
	kw := strings.Join(in.Analysis.Keywords, ", ")
	var b strings.Builder
	fmt.Fprintf(&b, "You are an academic writer specialised in %s.\n\n", in.Analysis.DetectedDomain)
	fmt.Fprintf(&b, "PROJECT: %q\nDESCRIPTION: %q\n", in.Title, in.Description)
	fmt.Fprintf(&b, "Write section %s %q of chapter %d %q.\n\n", in.Def.Number, in.Def.Title, in.Chapter.Number, in.Chapter.Title)
	b.WriteString("----- KNOWLEDGE BASE (primary source) -----\n")
	b.WriteString(report.Truncate(in.Facts, sectionFactsLimit))
	b.WriteString("\n----- END KNOWLEDGE BASE -----\n\n")
	fmt.Fprintf(&b, "Explain what %q means for %q, define its concepts and mechanisms, and connect it to the project goals.\n", in.Def.Title, in.Title)
	fmt.Fprintf(&b, "Every sentence must be specific to this project and stay within %s. No generic filler, no repetition, no placeholders.\n", in.Analysis.DetectedDomain)
	if len(in.Analysis.Rules) > 0 {
		b.WriteString("Rules:\n")
		for _, r := range in.Analysis.Rules {
			b.WriteString("- " + r + "\n")
		}
	}
	if len(in.Analysis.ForbiddenTopics) > 0 {
		fmt.Fprintf(&b, "Never discuss: %s.\n", strings.Join(in.Analysis.ForbiddenTopics, ", "))
	}
	b.WriteString("\nOutput requirements:\n")
	b.WriteString("- Exactly 3 paragraphs of 90 to 150 words. No lists or tables.\n")
	if in.wantsFormula() {
		b.WriteString("- Include exactly one formal LaTeX equation (loss function, model derivation or statistical model) in \"technical_formula\". Never put code or variable declarations there.\n")
	} else {
		b.WriteString("- Do not include any equation; leave \"technical_formula\" empty.\n")
	}
	b.WriteString("- Put a Mermaid diagram definition in \"technical_asset\" only when the section describes a workflow or architecture.\n")
	if in.Def.ImagePrompt != "" {
		b.WriteString("- This section is the visual focus of its chapter; refine the illustration prompt in \"image_prompt\".\n")
	}
	fmt.Fprintf(&b, "- Use these keywords naturally: %s\n\n", kw)
	fmt.Fprintf(&b, `Respond with JSON only:
{"number": %q, "title": %q, "content": ["paragraph 1", "paragraph 2", "paragraph 3"],
 "technical_formula": "", "technical_asset": "", "image_prompt": ""}
`, in.Def.Number, in.Def.Title)
	return b.String()
}

func abstractPrompt(title, description string, a report.Analysis, facts string) string {
	return fmt.Sprintf(`You are an academic writer specialised in %[3]s. Write the abstract of a capstone report on %[1]q.

----- KNOWLEDGE BASE -----
%[4]s
----- END KNOWLEDGE BASE -----

DESCRIPTION: %[2]q

Write exactly four entries of 80 to 100 words each, specific to this project:
1. what %[1]q is and the problem it solves
2. the methodology and key technologies
3. results and contribution to %[3]s
4. a keyword line starting with "Keywords:" listing 10 technical keywords

Respond with JSON only:
{"paragraphs": ["...", "...", "...", "Keywords: %[5]s"]}
`, title, description, a.DetectedDomain, report.Truncate(facts, abstractFactsLimit), strings.Join(a.Keywords, ", "))
}

func referencesPrompt(title string, a report.Analysis) string {
	return fmt.Sprintf(`List exactly 10 academic references for a %[2]s capstone project on %[1]q.
Keywords: %[3]s

Each reference must be formatted as: Author Name, 'Title of paper or book', [Link: https://...]
Every entry needs an author, a title in single quotes and a URL or DOI link. No commentary.

Respond with JSON only:
{"references": ["Author, 'Title', [Link: URL]"]}
`, title, a.DetectedDomain, strings.Join(a.Keywords, ", "))
}

func appendicesPrompt(title, description string, a report.Analysis) string {
	return fmt.Sprintf(`Write the technical appendix for a %[3]s capstone project on %[1]q.
Description: %[2]s
Keywords: %[4]s

Give 8 to 10 technical bullet points covering versioned tools, libraries and frameworks, the hardware and software environment, and a short architecture overview or pseudo-algorithm.

Respond with JSON only:
{"title": "APPENDICES", "items": ["...", "..."]}
`, title, description, a.DetectedDomain, strings.Join(a.Keywords, ", "))
}
