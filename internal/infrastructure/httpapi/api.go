package httpapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/procurehub/portal-client/internal/domain/account"
	"github.com/procurehub/portal-client/internal/domain/application"
	"github.com/procurehub/portal-client/internal/domain/tender"
)

// Typed endpoint groups over the portal REST surface. The paths mirror the
// backend's routing; entity normalization is left to the stores that cache
// the results.

// ---- auth ----

func (c *Client) Login(ctx context.Context, creds account.Credentials) (account.AuthResponse, error) {
	raw, err := c.sendJSON(ctx, http.MethodPost, "/auth/login", creds)
	if err != nil {
		return account.AuthResponse{}, err
	}
	var res account.AuthResponse
	if err := decodeObject(raw, &res); err != nil {
		return account.AuthResponse{}, err
	}
	return res, nil
}

func (c *Client) Register(ctx context.Context, reg account.Registration) (account.AuthResponse, error) {
	raw, err := c.sendJSON(ctx, http.MethodPost, "/auth/register", reg)
	if err != nil {
		return account.AuthResponse{}, err
	}
	var res account.AuthResponse
	if err := decodeObject(raw, &res); err != nil {
		return account.AuthResponse{}, err
	}
	return res, nil
}

func (c *Client) Me(ctx context.Context) (account.User, error) {
	raw, err := c.get(ctx, "/auth/me", nil)
	if err != nil {
		return account.User{}, err
	}
	var user account.User
	if err := decodeObject(raw, &user, "user"); err != nil {
		return account.User{}, err
	}
	return user, nil
}

func (c *Client) UpdateMe(ctx context.Context, patch account.ProfileUpdate) (account.User, error) {
	raw, err := c.sendJSON(ctx, http.MethodPut, "/auth/me", patch)
	if err != nil {
		return account.User{}, err
	}
	var user account.User
	if err := decodeObject(raw, &user, "user"); err != nil {
		return account.User{}, err
	}
	return user, nil
}

// ---- tenders ----

func (c *Client) ListTenders(ctx context.Context, filter tender.Filter) ([]tender.Tender, error) {
	raw, err := c.get(ctx, "/tenders", filter.Query())
	if err != nil {
		return nil, err
	}
	var list []tender.Tender
	if err := decodeList(raw, &list, "items", "tenders"); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetTender(ctx context.Context, id string) (tender.Tender, error) {
	raw, err := c.get(ctx, "/tenders/"+url.PathEscape(id), nil)
	if err != nil {
		return tender.Tender{}, err
	}
	var t tender.Tender
	if err := decodeObject(raw, &t, "tender"); err != nil {
		return tender.Tender{}, err
	}
	return t, nil
}

// CreateTender submits a new tender; with uploads present the submission
// goes multipart, otherwise plain JSON.
func (c *Client) CreateTender(ctx context.Context, payload tender.Payload, uploads []tender.Upload) (tender.Tender, error) {
	var raw []byte
	var err error
	if len(uploads) > 0 {
		raw, err = c.sendMultipart(ctx, http.MethodPost, "/tenders", payload.Fields(), uploads)
	} else {
		raw, err = c.sendJSON(ctx, http.MethodPost, "/tenders", payload)
	}
	if err != nil {
		return tender.Tender{}, err
	}
	var t tender.Tender
	if err := decodeObject(raw, &t, "tender"); err != nil {
		return tender.Tender{}, err
	}
	return t, nil
}

func (c *Client) UpdateTender(ctx context.Context, id string, patch tender.Payload) (tender.Tender, error) {
	raw, err := c.sendJSON(ctx, http.MethodPut, "/tenders/"+url.PathEscape(id), patch)
	if err != nil {
		return tender.Tender{}, err
	}
	var t tender.Tender
	if err := decodeObject(raw, &t, "tender"); err != nil {
		return tender.Tender{}, err
	}
	return t, nil
}

func (c *Client) DeleteTender(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/tenders/"+url.PathEscape(id), nil, "", nil)
	return err
}

// ---- applications ----

func (c *Client) MyApplications(ctx context.Context, params application.ListParams) ([]application.Application, error) {
	raw, err := c.get(ctx, "/applications/my", params.Query())
	if err != nil {
		return nil, err
	}
	var list []application.Application
	if err := decodeList(raw, &list, "applications"); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) ApplicationsByTender(ctx context.Context, tenderID string, params application.ListParams) ([]application.Application, error) {
	raw, err := c.get(ctx, "/applications/received/"+url.PathEscape(tenderID), params.Query())
	if err != nil {
		return nil, err
	}
	var list []application.Application
	if err := decodeList(raw, &list, "applications"); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetApplication(ctx context.Context, id string) (application.Application, error) {
	raw, err := c.get(ctx, "/applications/"+url.PathEscape(id), nil)
	if err != nil {
		return application.Application{}, err
	}
	var a application.Application
	if err := decodeObject(raw, &a, "application"); err != nil {
		return application.Application{}, err
	}
	return a, nil
}

func (c *Client) Apply(ctx context.Context, tenderID string, payload application.Payload) (application.Application, error) {
	raw, err := c.sendJSON(ctx, http.MethodPost, "/applications/"+url.PathEscape(tenderID), payload)
	if err != nil {
		return application.Application{}, err
	}
	var a application.Application
	if err := decodeObject(raw, &a, "application"); err != nil {
		return application.Application{}, err
	}
	return a, nil
}

func (c *Client) UpdateApplicationStatus(ctx context.Context, id string, status application.Status) (application.Application, error) {
	body := map[string]string{"status": string(status)}
	raw, err := c.sendJSON(ctx, http.MethodPut, "/applications/"+url.PathEscape(id)+"/status", body)
	if err != nil {
		return application.Application{}, err
	}
	var a application.Application
	if err := decodeObject(raw, &a, "application"); err != nil {
		return application.Application{}, err
	}
	return a, nil
}

func (c *Client) WithdrawApplication(ctx context.Context, id string) (application.Application, error) {
	raw, err := c.sendJSON(ctx, http.MethodPut, "/applications/"+url.PathEscape(id)+"/withdraw", nil)
	if err != nil {
		return application.Application{}, err
	}
	var a application.Application
	if err := decodeObject(raw, &a, "application"); err != nil {
		return application.Application{}, err
	}
	return a, nil
}
