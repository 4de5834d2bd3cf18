package tender

import (
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/procurehub/portal-client/internal/domain/values"
)

func init() {
	// Budget and bid amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Tender is an issuer-owned listing. Identity is stable across updates;
// the wire may carry it under "id" or a database-style "_id".
type Tender struct {
	ID             string          `json:"id"`
	AltID          string          `json:"_id,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Category       string          `json:"category,omitempty"`
	BudgetMin      decimal.Decimal `json:"budgetMin"`
	BudgetMax      decimal.Decimal `json:"budgetMax"`
	Deadline       time.Time       `json:"deadline"`
	Status         Status          `json:"status"`
	Issuer         values.Ref      `json:"issuer,omitempty"`
	Documents      []Document      `json:"documents,omitempty"`
	ApplicantCount int             `json:"applicantCount,omitempty"`
	CreatedAt      time.Time       `json:"createdAt,omitempty"`
}

// Normalize coalesces wire identity onto ID, recursively for attached
// documents. Idempotent.
func (t Tender) Normalize() Tender {
	t.ID = values.CoalesceID(t.ID, t.AltID)
	if len(t.Documents) > 0 {
		docs := make([]Document, len(t.Documents))
		for i, d := range t.Documents {
			docs[i] = d.Normalize()
		}
		t.Documents = docs
	}
	return t
}

// Matches reports whether the tender's identity equals id under either
// identity field.
func (t Tender) Matches(id string) bool {
	if id == "" {
		return false
	}
	return t.ID == id || t.AltID == id
}

type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

func (s Status) String() string { return string(s) }

// Document is a file attached to a tender.
type Document struct {
	ID    string `json:"id"`
	AltID string `json:"_id,omitempty"`
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
}

func (d Document) Normalize() Document {
	d.ID = values.CoalesceID(d.ID, d.AltID)
	return d
}

// Filter is the list query. All criteria are optional; empty criteria are
// omitted from the query string.
type Filter struct {
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
	Search   string `json:"search,omitempty"`
}

// Merge overlays non-empty fields of partial onto f.
func (f Filter) Merge(partial Filter) Filter {
	if partial.Category != "" {
		f.Category = partial.Category
	}
	if partial.Status != "" {
		f.Status = partial.Status
	}
	if partial.Search != "" {
		f.Search = partial.Search
	}
	return f
}

// Query renders the filter as URL query parameters.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// Upload is one file part of a multipart tender submission.
type Upload struct {
	Name        string
	ContentType string
	Content     []byte
}
