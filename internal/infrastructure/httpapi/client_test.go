package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/procurehub/portal-client/internal/domain/account"
	"github.com/procurehub/portal-client/internal/domain/application"
	"github.com/procurehub/portal-client/internal/domain/errors"
	"github.com/procurehub/portal-client/internal/domain/tender"
	"github.com/procurehub/portal-client/internal/infrastructure/config"
	"github.com/procurehub/portal-client/internal/infrastructure/keystore"
)

func newTestClient(t *testing.T, token string, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.APIConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	}
	c, err := NewClient(cfg, StaticToken(token), zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewClient(nil, nil, logger)
	assert.Error(t, err)

	_, err = NewClient(&config.APIConfig{}, nil, logger)
	assert.Error(t, err)

	_, err = NewClient(&config.APIConfig{BaseURL: "http://localhost:5000/api"}, nil, nil)
	assert.Error(t, err)
}

func TestClient_RequestHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, "jwt-token", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"data":{"id":"u1","name":"Dana"}}`))
	}))

	_, err := c.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer jwt-token", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
}

func TestClient_NoTokenNoAuthHeader(t *testing.T) {
	var got http.Header
	c := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))

	_, err := c.ListTenders(context.Background(), tender.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got.Get("Authorization"))
}

func TestClient_Login(t *testing.T) {
	t.Run("bare token field", func(t *testing.T) {
		c := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/auth/login", r.URL.Path)

			var creds account.Credentials
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "dana@example.com", creds.Email)

			w.Write([]byte(`{"token":"jwt","user":{"_id":"u1","name":"Dana"}}`))
		}))

		res, err := c.Login(context.Background(), account.Credentials{Email: "dana@example.com", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, "jwt", res.Token)
		require.NotNil(t, res.User)
		assert.Equal(t, "u1", res.User.AltID)
	})

	t.Run("wrapped accessToken", func(t *testing.T) {
		c := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"accessToken":"jwt2"}}`))
		}))

		res, err := c.Login(context.Background(), account.Credentials{Email: "dana@example.com", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, "jwt2", res.Token)
		assert.Nil(t, res.User)
	})
}

func TestClient_ListTenders(t *testing.T) {
	t.Run("keyed envelope with filters", func(t *testing.T) {
		c := newTestClient(t, "jwt", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/tenders", r.URL.Path)
			assert.Equal(t, "construction", r.URL.Query().Get("category"))
			assert.Equal(t, "active", r.URL.Query().Get("status"))

			w.Write([]byte(`{"data":{"items":[{"_id":"t1","title":"Road works"}],"total":1}}`))
		}))

		list, err := c.ListTenders(context.Background(), tender.Filter{Category: "construction", Status: "active"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "t1", list[0].AltID)
	})

	t.Run("bare array", func(t *testing.T) {
		c := newTestClient(t, "jwt", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id":"t1"},{"id":"t2"}]`))
		}))

		list, err := c.ListTenders(context.Background(), tender.Filter{})
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("absent collection is empty", func(t *testing.T) {
		c := newTestClient(t, "jwt", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"total":0}`))
		}))

		list, err := c.ListTenders(context.Background(), tender.Filter{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestClient_CreateTender_JSON(t *testing.T) {
	min := decimal.NewFromInt(100)
	c := newTestClient(t, "jwt", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Road works", body["title"])
		// budget travels as a JSON number, not a quoted string
		assert.Equal(t, float64(100), body["budgetMin"])

		w.Write([]byte(`{"tender":{"_id":"t9","title":"Road works"}}`))
	}))

	created, err := c.CreateTender(context.Background(), tender.Payload{Title: "Road works", BudgetMin: &min}, nil)
	require.NoError(t, err)
	assert.Equal(t, "t9", created.AltID)
}

func TestClient_CreateTender_Multipart(t *testing.T) {
	deadline := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, "jwt", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Road works", r.FormValue("title"))
		assert.Equal(t, "2025-01-01T00:00:00Z", r.FormValue("deadline"))
		assert.Equal(t, "asphalt,drainage", r.FormValue("requirements"))

		files := r.MultipartForm.File[documentsField]
		require.Len(t, files, 1)
		assert.Equal(t, "plan.pdf", files[0].Filename)
		assert.Equal(t, "application/pdf", files[0].Header.Get("Content-Type"))

		w.Write([]byte(`{"data":{"id":"t9"}}`))
	}))

	payload := tender.Payload{
		Title:        "Road works",
		Deadline:     &deadline,
		Requirements: []string{"asphalt", "drainage"},
	}
	uploads := []tender.Upload{{Name: "plan.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4")}}

	created, err := c.CreateTender(context.Background(), payload, uploads)
	require.NoError(t, err)
	assert.Equal(t, "t9", created.ID)
}

func TestClient_ApplicationEndpoints(t *testing.T) {
	c := newTestClient(t, "jwt", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/applications/my":
			w.Write([]byte(`{"applications":[{"_id":"a1","status":"pending"}]}`))
		case "/applications/received/t1":
			w.Write([]byte(`{"data":[{"id":"a2","status":"pending"}]}`))
		case "/applications/t1":
			assert.Equal(t, http.MethodPost, r.Method)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(1500), body["amount"])
			w.Write([]byte(`{"application":{"id":"a3","status":"pending","amount":1500}}`))
		case "/applications/a2/status":
			assert.Equal(t, http.MethodPut, r.Method)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "accepted", body["status"])
			w.Write([]byte(`{"data":{"id":"a2","status":"accepted"}}`))
		case "/applications/a1/withdraw":
			assert.Equal(t, http.MethodPut, r.Method)
			w.Write([]byte(`{"id":"a1","status":"withdrawn"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()

	mine, err := c.MyApplications(ctx, application.ListParams{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a1", mine[0].AltID)

	received, err := c.ApplicationsByTender(ctx, "t1", application.ListParams{})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "a2", received[0].ID)

	amount := decimal.NewFromInt(1500)
	applied, err := c.Apply(ctx, "t1", application.Payload{Amount: amount, Message: "bid"})
	require.NoError(t, err)
	assert.Equal(t, "a3", applied.ID)

	updated, err := c.UpdateApplicationStatus(ctx, "a2", application.StatusAccepted)
	require.NoError(t, err)
	assert.True(t, updated.Status.Equal(application.StatusAccepted))

	withdrawn, err := c.WithdrawApplication(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, withdrawn.Status.Equal(application.StatusWithdrawn))
}

func TestClient_ErrorMessagePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"server message wins", 400, `{"message":"Deadline is in the past","error":"BAD_REQUEST"}`, "Deadline is in the past"},
		{"error field next", 400, `{"error":"BAD_REQUEST"}`, "BAD_REQUEST"},
		{"status text fallback", 500, `not json at all`, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, "jwt", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := c.GetTender(context.Background(), "t1")
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.UserMessage(err))
			assert.Equal(t, tt.status, errors.GetStatusCode(err))
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	cfg := &config.APIConfig{BaseURL: srv.URL, Timeout: time.Second}
	c, err := NewClient(cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = c.ListTenders(context.Background(), tender.Filter{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
}

func TestClient_UnauthorizedHook(t *testing.T) {
	c := newTestClient(t, "stale-jwt", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Token expired"}`))
	}))

	var fired bool
	c.SetOnUnauthorized(func() { fired = true })

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, fired)
	assert.True(t, errors.IsUnauthorized(err))
	assert.Equal(t, "Token expired", errors.UserMessage(err))
}

func TestKeystoreTokens(t *testing.T) {
	store := keystore.NewMemory()
	tokens := KeystoreTokens{Store: store}

	_, ok := tokens.Token()
	assert.False(t, ok)

	// the token is read live, so a login between requests takes effect
	require.NoError(t, store.Set(keystore.KeyToken, "jwt"))
	got, ok := tokens.Token()
	assert.True(t, ok)
	assert.Equal(t, "jwt", got)

	require.NoError(t, store.Delete(keystore.KeyToken))
	_, ok = tokens.Token()
	assert.False(t, ok)
}
