package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tharuncoder676/CWS/internal/llm"
	"github.com/tharuncoder676/CWS/internal/pipeline"
	"github.com/tharuncoder676/CWS/internal/references"
	"github.com/tharuncoder676/CWS/internal/report"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a report with the LLM pipeline",
	Long: `Generate runs the full pipeline: domain classification, analysis, fact
extraction, chapter planning, section writing, abstract, references and
appendices. Any phase that fails falls back to template content, so a report
is always written.`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.String("brief", "", "path to the YAML brief (required)")
	f.String("out", "output", "directory for generated files")
	f.StringSlice("format", []string{formatDOCX, formatMarkdown}, "output formats: docx, md, html, tex, json")
	f.String("provider", llm.ProviderOpenAI, "LLM provider: openai or gemini")
	f.String("base-url", "", "OpenAI-compatible base URL")
	f.String("api-key", "", "LLM API key")
	f.String("fast-model", "google/gemini-2.0-flash-001", "model for classification, planning and references")
	f.String("content-model", "anthropic/claude-3.5-sonnet", "model for facts, sections and the abstract")
	f.String("image-model", "", "image model for AI illustrations")
	f.String("openalex-email", "", "contact address for OpenAlex lookups")
	f.Duration("timeout", llm.DefaultTimeout, "wall-clock budget of each LLM call")
	f.Duration("section-delay", pipeline.DefaultConfig().SectionDelay, "pause between sections")
	_ = generateCmd.MarkFlagRequired("brief")

	for key, flag := range map[string]string{
		"llm.provider":           "provider",
		"llm.base_url":           "base-url",
		"llm.api_key":            "api-key",
		"llm.fast_model":         "fast-model",
		"llm.content_model":      "content-model",
		"llm.image_model":        "image-model",
		"llm.timeout":            "timeout",
		"openalex.email":         "openalex-email",
		"pipeline.section_delay": "section-delay",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	path, _ := cmd.Flags().GetString("brief")
	b, err := loadBrief(path)
	if err != nil {
		return err
	}

	backends, images, err := llm.NewBackends(ctx, llm.Settings{
		Provider:     viper.GetString("llm.provider"),
		BaseURL:      viper.GetString("llm.base_url"),
		APIKey:       viper.GetString("llm.api_key"),
		FastModel:    viper.GetString("llm.fast_model"),
		ContentModel: viper.GetString("llm.content_model"),
		ImageModel:   viper.GetString("llm.image_model"),
		Title:        "Capstone Report Generator",
		Timeout:      viper.GetDuration("llm.timeout"),
	}, logger.Named("llm"))
	if err != nil {
		return err
	}

	cfg := pipeline.DefaultConfig()
	cfg.SectionDelay = viper.GetDuration("pipeline.section_delay")
	cfg.LLM.Timeout = viper.GetDuration("llm.timeout")
	opts := []pipeline.Option{
		pipeline.WithConfig(cfg),
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithReferences(references.NewOpenAlex(viper.GetString("openalex.email"), logger.Named("openalex"))),
	}
	if images != nil {
		opts = append(opts, pipeline.WithImages(images))
	}

	doc, err := pipeline.New(backends, opts...).Generate(ctx, b.brief(), progressPrinter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	if doc.Degraded() {
		logger.Warn("report contains template content", zap.String("domain", doc.Domain))
	}
	return write(cmd, b, doc)
}

func write(cmd *cobra.Command, b *briefFile, doc *report.Document) error {
	dir, _ := cmd.Flags().GetString("out")
	formats, _ := cmd.Flags().GetStringSlice("format")
	paths, err := writeOutputs(dir, formats, b.FrontMatter, doc)
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return err
}

func progressPrinter(w io.Writer) pipeline.Observer {
	return pipeline.ObserverFuncs{
		OnProgress: func(e pipeline.Event) {
			mark := ""
			if e.Degraded {
				mark = " (fallback)"
			}
			fmt.Fprintf(w, "[%3d%%] %-10s %s%s\n", e.Percent, e.Phase, e.Message, mark)
		},
	}
}

// templateCmd writes the template report without any network access.
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write the built-in template report for a brief",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("brief")
		b, err := loadBrief(path)
		if err != nil {
			return err
		}
		doc := report.Template(b.FrontMatter.Title, b.Description)
		return write(cmd, b, &doc)
	},
}

func init() {
	f := templateCmd.Flags()
	f.String("brief", "", "path to the YAML brief (required)")
	f.String("out", "output", "directory for generated files")
	f.StringSlice("format", []string{formatDOCX, formatMarkdown}, "output formats: docx, md, html, tex, json")
	_ = templateCmd.MarkFlagRequired("brief")

	rootCmd.AddCommand(templateCmd)
}
