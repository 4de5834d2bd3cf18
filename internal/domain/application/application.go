package application

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/procurehub/portal-client/internal/domain/values"
)

func init() {
	// Bid amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Application is a bidder's submission against exactly one tender. The
// wire shape varies by backend: identity may live under "id" or "_id", the
// nested tender reference has the same ambiguity, and the submission
// timestamp may arrive as "submittedAt" or "createdAt".
type Application struct {
	ID          string          `json:"id"`
	AltID       string          `json:"_id,omitempty"`
	Tender      *TenderRef      `json:"tender,omitempty"`
	Bidder      values.Ref      `json:"bidder,omitempty"`
	Status      Status          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	SubmittedAt time.Time       `json:"submittedAt,omitempty"`
	Message     string          `json:"message,omitempty"`
	Feedback    string          `json:"feedback,omitempty"`
	Files       []File          `json:"files,omitempty"`
}

func (a *Application) UnmarshalJSON(data []byte) error {
	type alias Application
	aux := struct {
		*alias
		CreatedAt time.Time `json:"createdAt"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = aux.CreatedAt
	}
	return nil
}

// Normalize coalesces wire identity onto ID, for the application itself
// and its nested tender reference. Idempotent.
func (a Application) Normalize() Application {
	a.ID = values.CoalesceID(a.ID, a.AltID)
	if a.Tender != nil {
		ref := a.Tender.Normalize()
		a.Tender = &ref
	}
	return a
}

// Matches reports identity equality under either identity field.
func (a Application) Matches(id string) bool {
	if id == "" {
		return false
	}
	return a.ID == id || a.AltID == id
}

// TenderID returns the normalized identity of the owning tender, or "".
func (a Application) TenderID() string {
	if a.Tender == nil {
		return ""
	}
	return values.CoalesceID(a.Tender.ID, a.Tender.AltID)
}

// TenderRef is the denormalized tender carried inside an application.
type TenderRef struct {
	ID       string    `json:"id"`
	AltID    string    `json:"_id,omitempty"`
	Title    string    `json:"title,omitempty"`
	Deadline time.Time `json:"deadline,omitempty"`
	Status   string    `json:"status,omitempty"`
}

func (r TenderRef) Normalize() TenderRef {
	r.ID = values.CoalesceID(r.ID, r.AltID)
	return r
}

// File is an attachment uploaded with the application.
type File struct {
	ID    string `json:"id"`
	AltID string `json:"_id,omitempty"`
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
}

// Status is the review state of an application. The set is open: backends
// have been observed to serve both "accepted" and "approved", in arbitrary
// casing, so comparisons are always case-insensitive.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInReview  Status = "in review"
	StatusAccepted  Status = "accepted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

func (s Status) String() string { return string(s) }

// Equal compares statuses case-insensitively.
func (s Status) Equal(other Status) bool {
	return strings.EqualFold(string(s), string(other))
}

// Terminal reports whether the status is a final decision. Informational
// only: the data layer does not reject transitions out of terminal states,
// the server owns that rule.
func (s Status) Terminal() bool {
	return s.Equal(StatusAccepted) || s.Equal(StatusApproved) || s.Equal(StatusRejected)
}

// ListParams narrows a list fetch.
type ListParams struct {
	Status string
	Limit  int
	Offset int
}

// Query renders the params as URL query parameters.
func (p ListParams) Query() url.Values {
	q := url.Values{}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	return q
}
