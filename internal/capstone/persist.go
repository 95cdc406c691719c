package capstone

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tharuncoder676/CWS/internal/export"
	"github.com/tharuncoder676/CWS/internal/models"
	"github.com/tharuncoder676/CWS/internal/report"
	"github.com/tharuncoder676/CWS/internal/store"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// rendered holds the export files of one report. pdf and tex stay empty
// when the LaTeX service is unavailable.
type rendered struct {
	docx []byte
	pdf  []byte
	tex  string
}

// render builds the DOCX and, concurrently, asks the LaTeX service for the
// PDF and .tex files. Only a DOCX failure is an error.
func (h *Handler) render(ctx context.Context, fm export.FrontMatter, doc *report.Document) (rendered, error) {
	var out rendered
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := export.DOCX(fm, doc)
		if err != nil {
			return fmt.Errorf("render docx: %w", err)
		}
		out.docx = data
		return nil
	})

	if h.compiler != nil {
		body := export.LaTeX(fm, doc)
		g.Go(func() error {
			pdf, err := h.compiler.CompilePDF(gctx, body, fm.Title)
			if err != nil {
				h.log.Warn("compile-pdf error (non-fatal)", zap.Error(err))
				return nil
			}
			out.pdf = pdf
			return nil
		})
		g.Go(func() error {
			tex, err := h.compiler.CompileTex(gctx, body, fm.Title)
			if err != nil {
				h.log.Warn("compile-tex error (non-fatal)", zap.Error(err))
				return nil
			}
			out.tex = tex
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return rendered{}, err
	}
	return out, nil
}

// upload stores data and returns its key, or "" when the upload failed.
func (h *Handler) upload(ctx context.Context, key string, data []byte, contentType string) string {
	if len(data) == 0 {
		return ""
	}
	if err := h.files.Upload(ctx, key, data, contentType); err != nil {
		h.log.Warn("export upload error (non-fatal)", zap.String("key", key), zap.Error(err))
		return ""
	}
	return key
}

// persist renders the exports of doc, uploads them and stores the report.
func (h *Handler) persist(ctx context.Context, userID, runID string, req models.GenerateRequest, doc *report.Document, templateOnly bool) (*models.StoredReport, error) {
	files, err := h.render(ctx, req.FrontMatter, doc)
	if err != nil {
		return nil, err
	}

	id := primitive.NewObjectID()
	hex := id.Hex()
	saved := &models.StoredReport{
		ID:            id,
		UserID:        userID,
		RunID:         runID,
		FrontMatter:   req.FrontMatter,
		Description:   req.Description,
		Options:       req.Options,
		Document:      *doc,
		Degraded:      doc.Degraded(),
		TemplateOnly:  templateOnly,
		DOCXObjectKey: h.upload(ctx, store.ObjectKey(userID, hex, export.FileName(req.FrontMatter.Title)), files.docx, docxContentType),
		PDFObjectKey:  h.upload(ctx, store.ObjectKey(userID, hex, "report.pdf"), files.pdf, "application/pdf"),
		TexObjectKey:  h.upload(ctx, store.ObjectKey(userID, hex, "report.tex"), []byte(files.tex), "application/x-tex"),
	}

	if _, err := h.reports.Insert(ctx, saved); err != nil {
		h.discard(context.WithoutCancel(ctx), saved.DOCXObjectKey, saved.PDFObjectKey, saved.TexObjectKey)
		return nil, fmt.Errorf("save report: %w", err)
	}
	return saved, nil
}

// discard removes uploaded exports; empty keys are skipped.
func (h *Handler) discard(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := h.files.Remove(ctx, key); err != nil {
			h.log.Warn("remove export", zap.String("key", key), zap.Error(err))
		}
	}
}
