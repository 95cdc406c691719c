package report

import "strings"

// DefaultDomain is assumed when classification produces nothing usable.
const DefaultDomain = "Computer Science"

// DefaultKeywords seed the analysis when the analysis phase fails.
var DefaultKeywords = []string{"Engineering", "Methodology", "Analysis", "Implementation", "Research"}

// DefaultAppendices returns the appendix bullets used when the appendices
// phase fails.
func DefaultAppendices() []string {
	return []string{
		"Hardware: NVIDIA RTX GPU, 16GB RAM, i7 Processor",
		"Software: Python 3.10, PyTorch, CUDA 11.8, OpenCV",
		"Architecture: Modular MVC-based Deep Learning Pipeline",
		"Dataset: Academic-grade curated research data",
	}
}

// TemplateReferences returns the five static references of the template report.
func TemplateReferences(title string) []string {
	return []string{
		"Author, A. (2024). Advanced Research in " + title + ". Academic Press.",
		"Smith, J. (2023). Implementation Guide for Modern Engineering Projects. Technology Journal, 15(3), 45-67.",
		"IEEE Standard for Project Documentation. (2022). Institute of Electrical and Electronics Engineers.",
		"Johnson, R., & Williams, K. (2023). Systematic Analysis and Design Methodologies. Springer Nature.",
		"Kumar, S., et al. (2024). Emerging Trends in Technical Research. International Journal of Engineering, 8(2), 112-128.",
	}
}

// TemplateAbstract returns five template paragraphs followed by a keyword line.
func TemplateAbstract(title, description string) []string {
	if description == "" {
		description = "A project focused on " + title
	}
	return []string{
		"This capstone project, entitled \"" + title + "\", investigates the core principles and implementation strategies relevant to modern academic standards within its domain.",
		"The study focuses on " + description + " through systematic analysis, literature review, and rigorous testing methodologies.",
		"The methodology combines established theoretical frameworks with innovative practical approaches to address the identified research gaps.",
		"Results indicate that " + title + " provides a robust and effective solution for the identified problem statement, meeting or exceeding established benchmarks.",
		"Future work will expand upon the findings detailed in this report to enhance the performance, scalability, and scope of the project.",
		"Keywords: " + title + ", Academic Study, Capstone Project, Implementation, Analysis, Research, Engineering, Technology, Innovation, Evaluation",
	}
}

// Template builds the complete network-free report for title and
// description. Identical inputs always produce identical output.
func Template(title, description string) Document {
	structure := DefaultStructure()
	chapters := make([]Chapter, len(structure.Chapters))
	for i, ch := range structure.Chapters {
		secs := make([]Section, len(ch.Sections))
		for j, sec := range ch.Sections {
			secs[j] = Section{
				Number:  sec.Number,
				Title:   sec.Title,
				Content: templateContent(sec.Title, title),
				Source:  SourceFallback,
			}
		}
		chapters[i] = Chapter{Number: ch.Number, Title: ch.Title, Sections: secs}
	}
	return Document{
		Abstract:   TemplateAbstract(title, description),
		Chapters:   chapters,
		References: TemplateReferences(title),
		Appendices: DefaultAppendices(),
		Domain:     DefaultDomain,
		Provenance: Provenance{
			Classification: SourceFallback,
			Analysis:       SourceFallback,
			Facts:          SourceFallback,
			Structure:      SourceFallback,
			Abstract:       SourceFallback,
			References:     SourceFallback,
			Appendices:     SourceFallback,
		},
	}
}

func templateContent(section, title string) []ContentItem {
	return []ContentItem{
		Paragraph("This section provides a rigorous academic overview of " + section + " as it pertains to the project \"" + title + "\". The investigation centers on the foundational principles required to understand the broader implications within contemporary research. The systematic approach adopted here ensures that each aspect of " + section + " is examined with the depth and precision expected at the capstone level."),
		Paragraph("Furthermore, the integration of " + section + " within the project framework necessitates a multi-faceted approach, balancing theoretical constructs with practical observations derived from the study of " + title + ". This balance is essential for producing academically sound conclusions that withstand peer scrutiny."),
		{List: &ListBlock{Items: []string{
			"Structural analysis of " + section,
			"Correlation between " + title + " and domain standards",
			"Identification of key performance indicators",
		}}},
		Paragraph("Detailed examination of these elements reveals that " + title + " serves as a critical junction for experimental and theoretical progress. This narrative expansion ensures that all academic requirements for the capstone report are met with technical precision and scholarly rigor."),
		{Table: &TableBlock{
			Caption: "Table: " + section + " Comparative Metrics",
			Headers: []string{"Metric", "Context", "Standard"},
			Rows:    [][]string{{"Reliability", "High", "Verified"}, {"Performance", "Optimal", "Benchmark"}},
		}},
		Paragraph("In conclusion, the analysis of " + section + " underscores the robustness of the proposed " + title + " system, providing a definitive roadmap for the subsequent evaluations detailed in this report."),
	}
}

// FallbackSection synthesizes a deterministic six-paragraph section used
// when generation for sec exhausts its retries.
func FallbackSection(sec SectionDef, ch ChapterDef, title, description string, analysis Analysis) Section {
	domain := analysis.DetectedDomain
	if domain == "" {
		domain = "the relevant domain"
	}
	kw := analysis.Keywords
	if len(kw) > 5 {
		kw = kw[:5]
	}
	keywords := strings.Join(kw, ", ")
	if keywords == "" {
		keywords = title
	}
	s := sec.Title
	q := "\"" + title + "\""

	return Section{
		Number: sec.Number,
		Title:  sec.Title,
		Source: SourceFallback,
		Content: []ContentItem{
			Paragraph("The comprehensive analysis of " + s + " within the framework of " + q + " necessitates a thorough understanding of the foundational principles that govern " + domain + " as an academic discipline. This section examines the critical intersection between theoretical frameworks and practical applications, providing a detailed exploration of how " + s + " contributes to the overall objectives of the project. The significance of this investigation lies in its ability to bridge the gap between established " + domain + " methodologies and the innovative approaches required for " + q + ". Through systematic analysis and rigorous academic inquiry, this section establishes the groundwork for understanding the complex relationships that define the project scope."),
			Paragraph("Contemporary research in " + domain + " has consistently demonstrated the importance of " + s + " in advancing both theoretical knowledge and practical implementations. The evolution of " + keywords + " has created new paradigms that challenge traditional approaches while simultaneously opening pathways for innovative solutions. Within the context of " + q + ", these developments assume particular significance as they directly influence the methodology, design decisions, and expected outcomes of the project. The academic literature provides substantial evidence that " + s + " serves as a critical component in ensuring the reliability, scalability, and effectiveness of systems within the " + domain + " ecosystem."),
			Paragraph("The methodological considerations surrounding " + s + " require careful attention to both qualitative and quantitative parameters that define success within " + domain + " research. Standard practices dictate that rigorous evaluation criteria be applied when assessing the performance metrics associated with " + q + ". This involves the systematic collection and analysis of data points that reflect the true impact of " + s + " on the project outcomes. The integration of established benchmarks with project-specific indicators ensures that the evaluation framework remains both comprehensive and contextually relevant."),
			Paragraph("The practical implementation of " + s + " within " + q + " demands a nuanced understanding of the technical constraints and opportunities that characterize the " + domain + " landscape. Engineering decisions made at this stage have far-reaching implications for the overall system architecture, performance characteristics, and maintainability of the solution. The analysis presented here draws upon established " + domain + " principles while incorporating project-specific adaptations that address the unique requirements identified during the preliminary investigation phase."),
			Paragraph("Furthermore, the comparative analysis of existing approaches to " + s + " reveals significant variations in effectiveness, efficiency, and applicability across different contexts within " + domain + ". By examining these variations systematically, this section identifies the optimal strategies for " + q + " and provides justification for the selected approach. The evidence-based reasoning presented here ensures that all technical decisions are grounded in academic literature and empirical observations rather than assumptions or untested hypotheses."),
			Paragraph("In synthesizing the findings related to " + s + ", it becomes evident that " + q + " represents a meaningful contribution to the " + domain + " body of knowledge. The detailed examination conducted in this section provides the necessary foundation for the subsequent chapters of this report, ensuring continuity and coherence in the academic narrative. The implications of these findings extend beyond the immediate project scope, offering insights that may inform future research directions and practical applications within the broader " + domain + " community."),
		},
	}
}
