package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tharuncoder676/CWS/internal/export"
	"github.com/tharuncoder676/CWS/internal/report"
)

// StoredReport is a generated capstone report stored in MongoDB.
type StoredReport struct {
	ID            primitive.ObjectID `json:"id"              bson:"_id,omitempty"`
	UserID        string             `json:"user_id"         bson:"user_id"`
	RunID         string             `json:"run_id"          bson:"run_id"`
	FrontMatter   export.FrontMatter `json:"front_matter"    bson:"front_matter"`
	Description   string             `json:"description"     bson:"description"`
	Options       report.Options     `json:"options"         bson:"options"`
	Document      report.Document    `json:"document"        bson:"document"`
	Degraded      bool               `json:"degraded"        bson:"degraded"`
	TemplateOnly  bool               `json:"template_only"   bson:"template_only"`
	DOCXObjectKey string             `json:"docx_object_key" bson:"docx_object_key"`
	PDFObjectKey  string             `json:"pdf_object_key"  bson:"pdf_object_key"`
	TexObjectKey  string             `json:"tex_object_key"  bson:"tex_object_key"`
	CreatedAt     time.Time          `json:"created_at"      bson:"created_at"`
}

// ReportSummary is one row of GET /api/reports.
type ReportSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Domain    string    `json:"domain"`
	Degraded  bool      `json:"degraded"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary returns the list view of r.
func (r *StoredReport) Summary() ReportSummary {
	return ReportSummary{
		ID:        r.ID.Hex(),
		Title:     r.FrontMatter.Title,
		Domain:    r.Document.Domain,
		Degraded:  r.Degraded,
		CreatedAt: r.CreatedAt,
	}
}

// GenerateRequest is the JSON body for POST /api/reports and
// POST /api/reports/template.
type GenerateRequest struct {
	FrontMatter   export.FrontMatter `json:"front_matter"`
	Description   string             `json:"description"`
	ReferenceText string             `json:"reference_text"`
	Options       report.Options     `json:"options"`
}

// Brief converts the request into pipeline input.
func (g GenerateRequest) Brief() report.Brief {
	return report.NewBrief(g.FrontMatter.Title, g.Description, g.ReferenceText, g.Options)
}
