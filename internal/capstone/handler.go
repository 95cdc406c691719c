// Package capstone serves the report API: background generation runs,
// stored reports, previews and downloads.
package capstone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/tharuncoder676/CWS/internal/auth"
	"github.com/tharuncoder676/CWS/internal/export"
	"github.com/tharuncoder676/CWS/internal/models"
	"github.com/tharuncoder676/CWS/internal/pipeline"
	"github.com/tharuncoder676/CWS/internal/report"
	"github.com/tharuncoder676/CWS/internal/runs"
	"github.com/tharuncoder676/CWS/internal/store"
)

// previewCacheSize is the number of rendered HTML previews kept in memory.
const previewCacheSize = 128

// saveGrace bounds saving a finished run after the server began shutting down.
const saveGrace = 30 * time.Second

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ReportStore defines the interface for report persistence.
type ReportStore interface {
	Insert(ctx context.Context, doc *models.StoredReport) (string, error)
	ListByUser(ctx context.Context, userID string) ([]models.StoredReport, error)
	GetByID(ctx context.Context, id string) (*models.StoredReport, error)
	Delete(ctx context.Context, id string) error
}

// FileStore defines the interface for file storage.
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// Generator produces a report document from a brief.
type Generator interface {
	Generate(ctx context.Context, brief report.Brief, obs pipeline.Observer) (*report.Document, error)
}

// Compiler turns a LaTeX body into PDF and standalone .tex files.
type Compiler interface {
	CompilePDF(ctx context.Context, latexBody, title string) ([]byte, error)
	CompileTex(ctx context.Context, latexBody, title string) (string, error)
}

// RunTracker records background runs and their progress.
type RunTracker interface {
	runs.Sink
	Start(ctx context.Context, runID, userID, title string) error
	Finish(ctx context.Context, runID, reportID string, runErr error) error
	Get(ctx context.Context, runID string) (*runs.Run, error)
	Subscribe(ctx context.Context, runID string) (<-chan runs.Event, error)
}

// Handler holds report HTTP handlers.
type Handler struct {
	reports  ReportStore
	files    FileStore
	gen      Generator
	tracker  RunTracker
	compiler Compiler
	preview  *lru.Cache[string, string]
	log      *zap.Logger

	// base outlives requests; background runs use it.
	base context.Context
	wg   sync.WaitGroup
}

// NewHandler wires the report handlers. compiler may be nil, in which case
// PDF and .tex exports are skipped.
func NewHandler(base context.Context, reports ReportStore, files FileStore, gen Generator, tracker RunTracker, compiler Compiler, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	cache, _ := lru.New[string, string](previewCacheSize)
	return &Handler{
		reports:  reports,
		files:    files,
		gen:      gen,
		tracker:  tracker,
		compiler: compiler,
		preview:  cache,
		log:      log,
		base:     base,
	}
}

// Wait blocks until all background runs have finished.
func (h *Handler) Wait() { h.wg.Wait() }

func decodeRequest(r *http.Request) (models.GenerateRequest, error) {
	req := models.GenerateRequest{Options: report.DefaultOptions()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errors.New("invalid request body")
	}
	req.FrontMatter.Title = strings.TrimSpace(req.FrontMatter.Title)
	if req.FrontMatter.Title == "" {
		return req, errors.New("front_matter.title is required")
	}
	return req, nil
}

// Create starts a generation run in the background and returns its id.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID := uuid.NewString()
	if err := h.tracker.Start(r.Context(), runID, userID, req.FrontMatter.Title); err != nil {
		h.log.Error("start run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start run")
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run(runID, userID, req)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (h *Handler) run(runID, userID string, req models.GenerateRequest) {
	ctx := h.base
	log := h.log.With(zap.String("run_id", runID), zap.String("user_id", userID))
	log.Info("report run started", zap.String("title", req.FrontMatter.Title))

	doc, err := h.gen.Generate(ctx, req.Brief(), runs.Observe(ctx, h.tracker, runID, log))
	if err != nil {
		log.Error("report run failed", zap.Error(err))
		h.finish(log, runID, "", err)
		return
	}

	// A shutdown during generation leaves a complete, partly fallback
	// document; it is still saved.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveGrace)
	defer cancel()
	saved, err := h.persist(saveCtx, userID, runID, req, doc, false)
	if err != nil {
		log.Error("report save failed", zap.Error(err))
		h.finish(log, runID, "", errors.New("failed to save report"))
		return
	}
	log.Info("report run finished", zap.String("report_id", saved.ID.Hex()), zap.Bool("degraded", saved.Degraded))
	h.finish(log, runID, saved.ID.Hex(), nil)
}

func (h *Handler) finish(log *zap.Logger, runID, reportID string, runErr error) {
	if err := h.tracker.Finish(context.WithoutCancel(h.base), runID, reportID, runErr); err != nil {
		log.Warn("finish run", zap.Error(err))
	}
}

// Template stores the network-free template report immediately.
func (h *Handler) Template(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc := report.Template(req.FrontMatter.Title, req.Description)
	saved, err := h.persist(r.Context(), userID, "", req, &doc, true)
	if err != nil {
		h.log.Error("template save failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save report")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// RunStatus returns the state and events of a run owned by the caller.
func (h *Handler) RunStatus(w http.ResponseWriter, r *http.Request) {
	run, ok := h.ownRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) ownRun(w http.ResponseWriter, r *http.Request) (*runs.Run, bool) {
	run, err := h.tracker.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil || run.UserID != auth.UserID(r.Context()) {
		if err != nil && !errors.Is(err, runs.ErrUnknownRun) {
			h.log.Error("get run", zap.Error(err))
		}
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	return run, true
}

// ownReport loads the report named in the URL. Reports of other users are
// reported as missing.
func (h *Handler) ownReport(w http.ResponseWriter, r *http.Request) (*models.StoredReport, bool) {
	doc, err := h.reports.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil || doc.UserID != auth.UserID(r.Context()) {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.log.Error("get report", zap.Error(err))
		}
		writeError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	return doc, true
}

// List returns summaries of the current user's reports.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.reports.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.log.Error("list reports", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	out := make([]models.ReportSummary, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].Summary())
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns a single stored report.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Delete removes a report and its files.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownReport(w, r)
	if !ok {
		return
	}

	h.discard(r.Context(), doc.DOCXObjectKey, doc.PDFObjectKey, doc.TexObjectKey)

	id := doc.ID.Hex()
	if err := h.reports.Delete(r.Context(), id); err != nil {
		h.log.Error("delete report", zap.String("report_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	h.preview.Remove(id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// Preview renders the report as an HTML page.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownReport(w, r)
	if !ok {
		return
	}
	id := doc.ID.Hex()
	page, hit := h.preview.Get(id)
	if !hit {
		var err error
		page, err = export.HTML(doc.FrontMatter, &doc.Document)
		if err != nil {
			h.log.Error("render preview", zap.String("report_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "preview failed")
			return
		}
		h.preview.Add(id, page)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

// DownloadDOCX streams the Word report from object storage.
func (h *Handler) DownloadDOCX(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "docx", func(d *models.StoredReport) string { return d.DOCXObjectKey },
		docxContentType, func(d *models.StoredReport) string { return export.FileName(d.FrontMatter.Title) })
}

// DownloadPDF streams the compiled PDF from object storage.
func (h *Handler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "pdf", func(d *models.StoredReport) string { return d.PDFObjectKey },
		"application/pdf", func(*models.StoredReport) string { return "report.pdf" })
}

// DownloadTex streams the .tex source from object storage.
func (h *Handler) DownloadTex(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "tex", func(d *models.StoredReport) string { return d.TexObjectKey },
		"application/x-tex", func(*models.StoredReport) string { return "report.tex" })
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, kind string,
	key func(*models.StoredReport) string, contentType string, name func(*models.StoredReport) string) {
	doc, ok := h.ownReport(w, r)
	if !ok {
		return
	}
	k := key(doc)
	if k == "" {
		writeError(w, http.StatusNotFound, kind+" not available")
		return
	}

	data, _, err := h.files.Download(r.Context(), k)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, kind+" not available")
			return
		}
		h.log.Error("download export", zap.String("key", k), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "download failed")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name(doc)+`"`)
	_, _ = w.Write(data)
}
