package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
	"github.com/ekaya-inc/ekaya-datasource/pkg/permission"
	"github.com/ekaya-inc/ekaya-datasource/pkg/repositories"
)

// mockDatasourceRepository is an in-memory record store with error injection.
type mockDatasourceRepository struct {
	mu          sync.Mutex
	datasources map[uuid.UUID]*models.Datasource
	grants      map[uuid.UUID][]uuid.UUID // user -> datasource ids

	insertErr error
	updateErr error
	selectErr error

	// Capture calls for verification
	insertCalls int
	updateCalls int
	deleteCalls int
	pagingIDs   []uuid.UUID
	pagingCalls int
	lastUpdated *models.Datasource
}

func newMockDatasourceRepository() *mockDatasourceRepository {
	return &mockDatasourceRepository{
		datasources: make(map[uuid.UUID]*models.Datasource),
		grants:      make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *mockDatasourceRepository) add(ds *models.Datasource) *models.Datasource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	copied := *ds
	m.datasources[ds.ID] = &copied
	return ds
}

func (m *mockDatasourceRepository) Insert(ctx context.Context, ds *models.Datasource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, existing := range m.datasources {
		if existing.Name == ds.Name {
			return apperrors.ErrConflict
		}
	}
	ds.ID = uuid.New()
	copied := *ds
	m.datasources[ds.ID] = &copied
	return nil
}

func (m *mockDatasourceRepository) UpdateByID(ctx context.Context, ds *models.Datasource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.datasources[ds.ID]; !ok {
		return apperrors.ErrNotFound
	}
	copied := *ds
	m.datasources[ds.ID] = &copied
	m.lastUpdated = &copied
	return nil
}

func (m *mockDatasourceRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if _, ok := m.datasources[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.datasources, id)
	return nil
}

func (m *mockDatasourceRepository) SelectByID(ctx context.Context, id uuid.UUID) (*models.Datasource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	ds, ok := m.datasources[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *ds
	return &copied, nil
}

func (m *mockDatasourceRepository) QueryByName(ctx context.Context, name string) ([]*models.Datasource, error) {
	return m.filter(func(ds *models.Datasource) bool { return ds.Name == name }), nil
}

func (m *mockDatasourceRepository) SelectByMap(ctx context.Context, filter models.DatasourceFilter) ([]*models.Datasource, error) {
	return m.filter(func(ds *models.Datasource) bool {
		if filter.UserID != nil && ds.UserID != *filter.UserID {
			return false
		}
		if filter.Type != nil && ds.Type != *filter.Type {
			return false
		}
		return true
	}), nil
}

func (m *mockDatasourceRepository) SelectPagingByIDs(ctx context.Context, ids []uuid.UUID, search string, req models.PageRequest) (*models.Page[*models.Datasource], error) {
	m.mu.Lock()
	m.pagingCalls++
	m.pagingIDs = ids
	m.mu.Unlock()

	set := idSet(ids)
	items := m.filter(func(ds *models.Datasource) bool {
		if ids != nil {
			if _, ok := set[ds.ID]; !ok {
				return false
			}
		}
		return search == "" || containsFold(ds.Name, search)
	})

	total := len(items)
	start := min(req.Offset(), total)
	end := min(start+req.PageSize, total)
	return models.NewPage(items[start:end], total, req), nil
}

func (m *mockDatasourceRepository) SelectBatchIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Datasource, error) {
	set := idSet(ids)
	return m.filter(func(ds *models.Datasource) bool {
		_, ok := set[ds.ID]
		return ok
	}), nil
}

func (m *mockDatasourceRepository) QueryAuthedDatasource(ctx context.Context, userID uuid.UUID) ([]*models.Datasource, error) {
	m.mu.Lock()
	set := idSet(m.grants[userID])
	m.mu.Unlock()
	return m.filter(func(ds *models.Datasource) bool {
		_, ok := set[ds.ID]
		return ok
	}), nil
}

func (m *mockDatasourceRepository) QueryDatasourceExceptUserID(ctx context.Context, userID uuid.UUID) ([]*models.Datasource, error) {
	return m.filter(func(ds *models.Datasource) bool { return ds.UserID != userID }), nil
}

func (m *mockDatasourceRepository) GrantDatasources(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[userID] = append([]uuid.UUID(nil), ids...)
	return nil
}

func (m *mockDatasourceRepository) OwnedDatasourceIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return idsOf(m.filter(func(ds *models.Datasource) bool { return ds.UserID == userID })), nil
}

func (m *mockDatasourceRepository) GrantedDatasourceIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	authed, _ := m.QueryAuthedDatasource(ctx, userID)
	return idsOf(authed), nil
}

// filter returns copies sorted by name so results are stable.
func (m *mockDatasourceRepository) filter(keep func(*models.Datasource) bool) []*models.Datasource {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.Datasource, 0)
	for _, ds := range m.datasources {
		if keep(ds) {
			copied := *ds
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

var _ repositories.DatasourceRepository = (*mockDatasourceRepository)(nil)

// mockChecker answers permission checks with fixed results.
type mockChecker struct {
	allowOperation bool
	allowResource  bool
	authorizedIDs  []uuid.UUID
	ownedIDs       []uuid.UUID

	operationCalls int
	resourceCalls  int
}

func (m *mockChecker) OperationPermissionCheck(ctx context.Context, resourceType permission.ResourceType, user *models.User, code string) bool {
	m.operationCalls++
	return m.allowOperation
}

func (m *mockChecker) ResourcePermissionCheck(ctx context.Context, resourceType permission.ResourceType, ids []uuid.UUID, user *models.User) bool {
	m.resourceCalls++
	return m.allowResource
}

func (m *mockChecker) AuthorizedResourceIDs(ctx context.Context, resourceType permission.ResourceType, user *models.User) ([]uuid.UUID, error) {
	return m.authorizedIDs, nil
}

func (m *mockChecker) OwnedResourceIDs(ctx context.Context, resourceType permission.ResourceType, user *models.User) ([]uuid.UUID, error) {
	return m.ownedIDs, nil
}

var _ permission.Checker = (*mockChecker)(nil)

// mockTester returns a fixed probe result and database list.
type mockTester struct {
	result    bool
	databases []string
	listErr   error

	testCalls  int
	lastParam  *models.ConnectionParam
	lastDbType models.DbType
}

func (m *mockTester) Test(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) bool {
	m.testCalls++
	m.lastDbType = dbType
	m.lastParam = param
	return m.result
}

func (m *mockTester) ListDatabases(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) ([]string, error) {
	m.lastDbType = dbType
	m.lastParam = param
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.databases, nil
}

var _ datasource.ConnectivityTester = (*mockTester)(nil)

// mockAdapterFactory lists a fixed set of types.
type mockAdapterFactory struct {
	types []datasource.DatasourceAdapterInfo
}

func (m *mockAdapterFactory) NewSession(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) (datasource.Session, error) {
	return nil, apperrors.ErrConnectFailed
}

func (m *mockAdapterFactory) ListTypes() []datasource.DatasourceAdapterInfo {
	return m.types
}

var _ datasource.DatasourceAdapterFactory = (*mockAdapterFactory)(nil)

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func idsOf(list []*models.Datasource) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(list))
	for _, ds := range list {
		ids = append(ids, ds.ID)
	}
	return ids
}
