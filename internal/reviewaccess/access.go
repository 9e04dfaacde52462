// Package reviewaccess lets CLI commands read the import ledger and work
// conflicts whether or not the daemon is running.
package reviewaccess

import (
	"context"
	"errors"
	"strings"

	"docflow/internal/api"
	"docflow/internal/conflict"
	"docflow/internal/ipc"
	"docflow/internal/logging"
	"docflow/internal/services"
	"docflow/internal/store"
)

// Access provides ledger and conflict operations regardless of IPC or direct store backing.
type Access interface {
	ListImports(ctx context.Context, query api.ImportQuery) ([]api.ImportEntry, error)
	ImportStats(ctx context.Context) (map[string]int, error)
	ListConflicts(ctx context.Context, query api.ConflictQuery) ([]api.Conflict, error)
	CountConflicts(ctx context.Context, userID *int64) (api.ConflictCount, error)
	DescribeConflict(ctx context.Context, id int64) (*api.Conflict, error)
	ResolveConflicts(ctx context.Context, req api.ResolveConflictRequest) (api.ResolveConflictsResult, error)
	SetAuthor(ctx context.Context, name string, userID int64) error
	ListAuthors(ctx context.Context) ([]api.AuthorMapping, error)
	DatabaseHealth(ctx context.Context) (api.DatabaseHealth, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct DB access.
func NewStoreAccess(st *store.Store) Access {
	resolver := conflict.New(st, logging.NewNop())
	return &storeAccess{store: st, service: api.NewReviewService(st, resolver)}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) ListImports(_ context.Context, query api.ImportQuery) ([]api.ImportEntry, error) {
	resp, err := a.client.ImportsList(query)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) ImportStats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.ImportStats, nil
}

func (a *ipcAccess) ListConflicts(_ context.Context, query api.ConflictQuery) ([]api.Conflict, error) {
	resp, err := a.client.ConflictsList(query)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) CountConflicts(_ context.Context, userID *int64) (api.ConflictCount, error) {
	resp, err := a.client.ConflictsCount(userID)
	if err != nil {
		return api.ConflictCount{}, err
	}
	return resp.Count, nil
}

func (a *ipcAccess) DescribeConflict(_ context.Context, id int64) (*api.Conflict, error) {
	resp, err := a.client.ConflictDescribe(id)
	if err != nil {
		return nil, err
	}
	if resp == nil || !resp.Found {
		return nil, nil
	}
	return &resp.Item, nil
}

func (a *ipcAccess) ResolveConflicts(_ context.Context, req api.ResolveConflictRequest) (api.ResolveConflictsResult, error) {
	resp, err := a.client.ConflictsResolve(req)
	if err != nil {
		return api.ResolveConflictsResult{}, err
	}
	return resp.Result, nil
}

func (a *ipcAccess) SetAuthor(_ context.Context, name string, userID int64) error {
	_, err := a.client.AuthorsSet(name, userID)
	return err
}

func (a *ipcAccess) ListAuthors(_ context.Context) ([]api.AuthorMapping, error) {
	resp, err := a.client.AuthorsList()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) DatabaseHealth(_ context.Context) (api.DatabaseHealth, error) {
	resp, err := a.client.DatabaseHealth()
	if err != nil {
		return api.DatabaseHealth{}, err
	}
	return *resp, nil
}

type storeAccess struct {
	store   *store.Store
	service *api.ReviewService
}

func (a *storeAccess) ListImports(ctx context.Context, query api.ImportQuery) ([]api.ImportEntry, error) {
	return a.service.ListImports(ctx, query)
}

func (a *storeAccess) ImportStats(ctx context.Context) (map[string]int, error) {
	return a.service.ImportStats(ctx)
}

func (a *storeAccess) ListConflicts(ctx context.Context, query api.ConflictQuery) ([]api.Conflict, error) {
	return a.service.ListConflicts(ctx, query)
}

func (a *storeAccess) CountConflicts(ctx context.Context, userID *int64) (api.ConflictCount, error) {
	return a.service.CountConflicts(ctx, userID)
}

func (a *storeAccess) DescribeConflict(ctx context.Context, id int64) (*api.Conflict, error) {
	item, err := a.service.DescribeConflict(ctx, id)
	if errors.Is(err, conflict.ErrNotFound) {
		return nil, nil
	}
	return item, err
}

func (a *storeAccess) ResolveConflicts(ctx context.Context, req api.ResolveConflictRequest) (api.ResolveConflictsResult, error) {
	return a.service.ResolveConflicts(ctx, req)
}

func (a *storeAccess) SetAuthor(ctx context.Context, name string, userID int64) error {
	if strings.TrimSpace(name) == "" || userID <= 0 {
		return services.Wrap(services.ErrValidation, "reviewaccess", "set author", "author name and positive user id are required", nil)
	}
	return a.store.UpsertAuthorMapping(ctx, name, userID)
}

func (a *storeAccess) ListAuthors(ctx context.Context) ([]api.AuthorMapping, error) {
	mappings, err := a.store.ListAuthorMappings(ctx)
	if err != nil {
		return nil, err
	}
	return api.FromAuthorMappings(mappings), nil
}

func (a *storeAccess) DatabaseHealth(ctx context.Context) (api.DatabaseHealth, error) {
	health, err := a.store.CheckHealth(ctx)
	return api.FromDatabaseHealth(health), err
}
