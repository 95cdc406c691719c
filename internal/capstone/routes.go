package capstone

import "github.com/go-chi/chi/v5"

// Routes mounts the report endpoints. Callers apply authentication.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Post("/template", h.Template)
	r.Get("/runs/{runID}", h.RunStatus)
	r.Get("/runs/{runID}/events", h.Events)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/preview", h.Preview)
	r.Get("/{id}/docx", h.DownloadDOCX)
	r.Get("/{id}/pdf", h.DownloadPDF)
	r.Get("/{id}/tex", h.DownloadTex)
}
