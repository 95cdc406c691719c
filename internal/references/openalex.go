// Package references looks up real citations for a report.
package references

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// openAlexSearchBase is the OpenAlex works search endpoint. Tests replace it
// with an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

const (
	// DefaultLimit is the number of citations returned per lookup.
	DefaultLimit = 10
	// maxQueryKeywords caps how many keywords are added to the title query.
	maxQueryKeywords = 3
	maxAuthors       = 3
)

// OpenAlex finds citations through the OpenAlex works API.
type OpenAlex struct {
	Client *http.Client
	// Email is sent as mailto to join the polite pool.
	Email string
	Limit int
	Log   *zap.Logger
}

// NewOpenAlex returns a lookup with a bounded HTTP client.
func NewOpenAlex(email string, log *zap.Logger) *OpenAlex {
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAlex{
		Client: &http.Client{Timeout: 30 * time.Second},
		Email:  email,
		Limit:  DefaultLimit,
		Log:    log,
	}
}

// FetchReferences searches for works matching title and keywords and
// formats them as "Author, 'Title', [Link: URL]".
func (o *OpenAlex) FetchReferences(ctx context.Context, title string, keywords []string) ([]string, error) {
	query := buildQuery(title, keywords)
	if query == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	limit := o.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{
		"search":   {query},
		"per_page": {fmt.Sprintf("%d", limit)},
		"page":     {"1"},
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	var refs []string
	for _, work := range oar.Results {
		if ref, ok := formatWork(work); ok {
			refs = append(refs, ref)
		}
		if len(refs) == limit {
			break
		}
	}
	if o.Log != nil {
		o.Log.Debug("openalex lookup", zap.String("query", query), zap.Int("results", len(oar.Results)), zap.Int("kept", len(refs)))
	}
	return refs, nil
}

func buildQuery(title string, keywords []string) string {
	parts := []string{strings.TrimSpace(title)}
	n := 0
	for _, kw := range keywords {
		if n == maxQueryKeywords {
			break
		}
		if kw = strings.TrimSpace(kw); kw != "" {
			parts = append(parts, kw)
			n++
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func formatWork(w openAlexWork) (string, bool) {
	title := strings.TrimSpace(w.Title)
	if title == "" {
		return "", false
	}

	var authors []string
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			authors = append(authors, a.Author.DisplayName)
		}
	}
	author := "Anonymous"
	switch {
	case len(authors) > maxAuthors:
		author = strings.Join(authors[:maxAuthors], ", ") + " et al."
	case len(authors) > 0:
		author = strings.Join(authors, ", ")
	}

	link := w.DOI
	if link == "" {
		link = w.OpenAccess.OAURL
	}
	if link == "" {
		link = w.ID
	}
	if link == "" {
		return "", false
	}
	if !strings.HasPrefix(link, "http") {
		link = "https://doi.org/" + link
	}

	if w.PublicationYear > 0 {
		return fmt.Sprintf("%s, '%s' (%d), [Link: %s]", author, title, w.PublicationYear, link), true
	}
	return fmt.Sprintf("%s, '%s', [Link: %s]", author, title, link), true
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DOI             string               `json:"doi"`
	PublicationYear int                  `json:"publication_year"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	OpenAccess      openAlexOpenAccess   `json:"open_access"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexOpenAccess struct {
	OAURL string `json:"oa_url"`
}
