package tender

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/procurehub/portal-client/internal/domain/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Draft is a tender as it comes out of a form: every field still in string
// form. Normalize converts it into the typed wire payload; numeric and
// date fields are converted at the point of submission regardless of the
// string form the form produced.
type Draft struct {
	Title        string   `validate:"required"`
	Description  string   `validate:"required"`
	Category     string   `validate:"required"`
	BudgetMin    string   `validate:"omitempty"`
	BudgetMax    string   `validate:"omitempty"`
	Deadline     string   `validate:"omitempty"`
	Requirements []string `validate:"-"`
	Tags         []string `validate:"-"`
}

// Validate checks the draft before submission.
func (d Draft) Validate() error {
	if err := validate.Struct(d); err != nil {
		return errors.NewValidationError("INVALID_TENDER", err.Error()).WithCause(err)
	}
	return nil
}

// Normalize converts form strings into the typed payload: budgets become
// decimals, the deadline becomes an RFC 3339 timestamp.
func (d Draft) Normalize() (Payload, error) {
	p := Payload{
		Title:        d.Title,
		Description:  d.Description,
		Category:     d.Category,
		Requirements: d.Requirements,
		Tags:         d.Tags,
	}

	if d.BudgetMin != "" {
		min, err := decimal.NewFromString(d.BudgetMin)
		if err != nil {
			return Payload{}, errors.NewValidationError("INVALID_BUDGET", "budgetMin is not a number").WithCause(err)
		}
		p.BudgetMin = &min
	}
	if d.BudgetMax != "" {
		max, err := decimal.NewFromString(d.BudgetMax)
		if err != nil {
			return Payload{}, errors.NewValidationError("INVALID_BUDGET", "budgetMax is not a number").WithCause(err)
		}
		p.BudgetMax = &max
	}
	if d.Deadline != "" {
		deadline, err := parseDeadline(d.Deadline)
		if err != nil {
			return Payload{}, errors.NewValidationError("INVALID_DEADLINE", "deadline is not a recognizable date").WithCause(err)
		}
		p.Deadline = &deadline
	}

	return p, nil
}

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDeadline(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range deadlineLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Payload is the normalized wire form of a tender create/update. Optional
// fields are pointers so a partial update omits what it does not touch.
type Payload struct {
	Title        string           `json:"title,omitempty"`
	Description  string           `json:"description,omitempty"`
	Category     string           `json:"category,omitempty"`
	BudgetMin    *decimal.Decimal `json:"budgetMin,omitempty"`
	BudgetMax    *decimal.Decimal `json:"budgetMax,omitempty"`
	Deadline     *time.Time       `json:"deadline,omitempty"`
	Requirements []string         `json:"requirements,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	Status       Status           `json:"status,omitempty"`
}

// Fields renders the payload as flat multipart form fields: scalars
// verbatim, array fields comma-joined.
func (p Payload) Fields() map[string]string {
	fields := make(map[string]string)
	put := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	put("title", p.Title)
	put("description", p.Description)
	put("category", p.Category)
	put("status", string(p.Status))
	if p.BudgetMin != nil {
		fields["budgetMin"] = p.BudgetMin.String()
	}
	if p.BudgetMax != nil {
		fields["budgetMax"] = p.BudgetMax.String()
	}
	if p.Deadline != nil {
		fields["deadline"] = p.Deadline.Format(time.RFC3339)
	}
	if len(p.Requirements) > 0 {
		fields["requirements"] = strings.Join(p.Requirements, ",")
	}
	if len(p.Tags) > 0 {
		fields["tags"] = strings.Join(p.Tags, ",")
	}
	return fields
}
