package store

import (
	"context"
	"sync/atomic"

	"github.com/procurehub/portal-client/internal/domain/account"
	"github.com/procurehub/portal-client/internal/domain/application"
	"github.com/procurehub/portal-client/internal/domain/tender"
)

// Function-field fakes for the transport interfaces. Unset fields panic,
// which is the desired failure for a call a test did not expect.

type fakeAuthAPI struct {
	login    func(ctx context.Context, creds account.Credentials) (account.AuthResponse, error)
	register func(ctx context.Context, reg account.Registration) (account.AuthResponse, error)
	me       func(ctx context.Context) (account.User, error)
	updateMe func(ctx context.Context, patch account.ProfileUpdate) (account.User, error)

	meCalls atomic.Int64
}

func (f *fakeAuthAPI) Login(ctx context.Context, creds account.Credentials) (account.AuthResponse, error) {
	return f.login(ctx, creds)
}

func (f *fakeAuthAPI) Register(ctx context.Context, reg account.Registration) (account.AuthResponse, error) {
	return f.register(ctx, reg)
}

func (f *fakeAuthAPI) Me(ctx context.Context) (account.User, error) {
	f.meCalls.Add(1)
	return f.me(ctx)
}

func (f *fakeAuthAPI) UpdateMe(ctx context.Context, patch account.ProfileUpdate) (account.User, error) {
	return f.updateMe(ctx, patch)
}

type fakeTenderAPI struct {
	list   func(ctx context.Context, filter tender.Filter) ([]tender.Tender, error)
	get    func(ctx context.Context, id string) (tender.Tender, error)
	create func(ctx context.Context, payload tender.Payload, uploads []tender.Upload) (tender.Tender, error)
	update func(ctx context.Context, id string, patch tender.Payload) (tender.Tender, error)
	delete func(ctx context.Context, id string) error

	listCalls atomic.Int64
}

func (f *fakeTenderAPI) ListTenders(ctx context.Context, filter tender.Filter) ([]tender.Tender, error) {
	f.listCalls.Add(1)
	return f.list(ctx, filter)
}

func (f *fakeTenderAPI) GetTender(ctx context.Context, id string) (tender.Tender, error) {
	return f.get(ctx, id)
}

func (f *fakeTenderAPI) CreateTender(ctx context.Context, payload tender.Payload, uploads []tender.Upload) (tender.Tender, error) {
	return f.create(ctx, payload, uploads)
}

func (f *fakeTenderAPI) UpdateTender(ctx context.Context, id string, patch tender.Payload) (tender.Tender, error) {
	return f.update(ctx, id, patch)
}

func (f *fakeTenderAPI) DeleteTender(ctx context.Context, id string) error {
	return f.delete(ctx, id)
}

type fakeApplicationAPI struct {
	mine         func(ctx context.Context, params application.ListParams) ([]application.Application, error)
	byTender     func(ctx context.Context, tenderID string, params application.ListParams) ([]application.Application, error)
	get          func(ctx context.Context, id string) (application.Application, error)
	apply        func(ctx context.Context, tenderID string, payload application.Payload) (application.Application, error)
	updateStatus func(ctx context.Context, id string, status application.Status) (application.Application, error)
	withdraw     func(ctx context.Context, id string) (application.Application, error)

	byTenderCalls atomic.Int64
}

func (f *fakeApplicationAPI) MyApplications(ctx context.Context, params application.ListParams) ([]application.Application, error) {
	return f.mine(ctx, params)
}

func (f *fakeApplicationAPI) ApplicationsByTender(ctx context.Context, tenderID string, params application.ListParams) ([]application.Application, error) {
	f.byTenderCalls.Add(1)
	return f.byTender(ctx, tenderID, params)
}

func (f *fakeApplicationAPI) GetApplication(ctx context.Context, id string) (application.Application, error) {
	return f.get(ctx, id)
}

func (f *fakeApplicationAPI) Apply(ctx context.Context, tenderID string, payload application.Payload) (application.Application, error) {
	return f.apply(ctx, tenderID, payload)
}

func (f *fakeApplicationAPI) UpdateApplicationStatus(ctx context.Context, id string, status application.Status) (application.Application, error) {
	return f.updateStatus(ctx, id, status)
}

func (f *fakeApplicationAPI) WithdrawApplication(ctx context.Context, id string) (application.Application, error) {
	return f.withdraw(ctx, id)
}
