package tender

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTender_Normalize(t *testing.T) {
	t.Run("coalesces _id", func(t *testing.T) {
		tr := Tender{AltID: "t-1", Documents: []Document{{AltID: "d-1", Name: "spec.pdf"}}}
		got := tr.Normalize()
		assert.Equal(t, "t-1", got.ID)
		assert.Equal(t, "d-1", got.Documents[0].ID)
	})

	t.Run("idempotent", func(t *testing.T) {
		tr := Tender{ID: "t-2", AltID: "t-2", Documents: []Document{{ID: "d-2", AltID: "d-2"}}}
		once := tr.Normalize()
		assert.Equal(t, once, once.Normalize())
	})
}

func TestTender_Matches(t *testing.T) {
	tr := Tender{ID: "t-1", AltID: "mongo-1"}
	assert.True(t, tr.Matches("t-1"))
	assert.True(t, tr.Matches("mongo-1"))
	assert.False(t, tr.Matches("other"))
	assert.False(t, tr.Matches(""))
}

func TestTender_UnmarshalBudgets(t *testing.T) {
	raw := `{"_id":"t-9","title":"Bridge","budgetMin":100,"budgetMax":"250.50","status":"active"}`
	var tr Tender
	require.NoError(t, json.Unmarshal([]byte(raw), &tr))
	tr = tr.Normalize()

	assert.Equal(t, "t-9", tr.ID)
	assert.True(t, tr.BudgetMin.Equal(decimal.NewFromInt(100)))
	assert.True(t, tr.BudgetMax.Equal(decimal.RequireFromString("250.50")))
	assert.Equal(t, StatusActive, tr.Status)
}

func TestFilter_Merge(t *testing.T) {
	f := Filter{Category: "construction", Status: "active"}
	got := f.Merge(Filter{Search: "bridge"})
	assert.Equal(t, Filter{Category: "construction", Status: "active", Search: "bridge"}, got)

	got = got.Merge(Filter{Category: "it"})
	assert.Equal(t, "it", got.Category)
	assert.Equal(t, "bridge", got.Search)
}

func TestFilter_Query(t *testing.T) {
	q := Filter{Category: "it", Search: "cloud"}.Query()
	assert.Equal(t, "it", q.Get("category"))
	assert.Equal(t, "cloud", q.Get("search"))
	assert.Empty(t, q.Get("status"))
}

func TestDraft_Normalize(t *testing.T) {
	t.Run("converts strings at submission", func(t *testing.T) {
		d := Draft{
			Title:       "X",
			Description: "desc",
			Category:    "it",
			BudgetMin:   "100",
			BudgetMax:   "200",
			Deadline:    "2025-01-01",
			Tags:        []string{"a", "b"},
		}
		p, err := d.Normalize()
		require.NoError(t, err)

		require.NotNil(t, p.BudgetMin)
		assert.True(t, p.BudgetMin.Equal(decimal.NewFromInt(100)))
		require.NotNil(t, p.Deadline)
		assert.Equal(t, "2025-01-01T00:00:00Z", p.Deadline.Format(time.RFC3339))
	})

	t.Run("rejects non-numeric budget", func(t *testing.T) {
		_, err := Draft{Title: "X", Description: "d", Category: "c", BudgetMin: "lots"}.Normalize()
		assert.Error(t, err)
	})

	t.Run("rejects unparseable deadline", func(t *testing.T) {
		_, err := Draft{Title: "X", Description: "d", Category: "c", Deadline: "someday"}.Normalize()
		assert.Error(t, err)
	})
}

func TestPayload_Fields(t *testing.T) {
	min := decimal.NewFromInt(100)
	deadline := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Payload{
		Title:     "X",
		BudgetMin: &min,
		Deadline:  &deadline,
		Tags:      []string{"a", "b"},
	}
	fields := p.Fields()
	assert.Equal(t, "X", fields["title"])
	assert.Equal(t, "100", fields["budgetMin"])
	assert.Equal(t, "2025-01-01T00:00:00Z", fields["deadline"])
	assert.Equal(t, "a,b", fields["tags"])
	_, ok := fields["description"]
	assert.False(t, ok)
}

func TestPayload_MarshalsNumbersUnquoted(t *testing.T) {
	min := decimal.NewFromInt(100)
	b, err := json.Marshal(Payload{Title: "X", BudgetMin: &min})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"X","budgetMin":100}`, string(b))
}

func TestDraft_Validate(t *testing.T) {
	assert.NoError(t, Draft{Title: "X", Description: "d", Category: "c"}.Validate())
	assert.Error(t, Draft{Description: "d", Category: "c"}.Validate())
}
