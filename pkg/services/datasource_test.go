package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource/all"
	"github.com/ekaya-inc/ekaya-datasource/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datasource/pkg/audit"
	"github.com/ekaya-inc/ekaya-datasource/pkg/crypto"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
	"github.com/ekaya-inc/ekaya-datasource/pkg/permission"
)

const dataSource01Params = `{"user":"postgres","password":"","address":"jdbc:postgresql://172.16.133.200:5432","database":"dolphinscheduler","jdbcUrl":"jdbc:postgresql://172.16.133.200:5432/dolphinscheduler","driverClassName":"org.postgresql.Driver","validationQuery":"select version()"}`

func adminUser() *models.User {
	return &models.User{ID: uuid.New(), UserName: "admin", UserType: models.UserTypeAdmin}
}

func generalUser() *models.User {
	return &models.User{ID: uuid.New(), UserName: "general", UserType: models.UserTypeGeneral}
}

func postgresDTO(name string) *models.PostgreSQLDatasourceParamDTO {
	return &models.PostgreSQLDatasourceParamDTO{BaseDatasourceParamDTO: models.BaseDatasourceParamDTO{
		Name:     name,
		Note:     "test dataSource",
		Host:     "172.16.133.200",
		Port:     5432,
		Database: "dolphinscheduler",
		UserName: "postgres",
		Password: "",
	}}
}

func randomStringWithLength(t *testing.T, n int) string {
	t.Helper()
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	var sb strings.Builder
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		require.NoError(t, err)
		sb.WriteByte(letters[idx.Int64()])
	}
	return sb.String()
}

type serviceFixture struct {
	repo    *mockDatasourceRepository
	tester  *mockTester
	service DatasourceService
}

// newServiceFixture wires the service to the real permission checker backed by
// the in-memory repository.
func newServiceFixture(cfg DatasourceServiceConfig) *serviceFixture {
	repo := newMockDatasourceRepository()
	tester := &mockTester{result: true}
	checker := permission.NewChecker(repo, nil, zap.NewNop())
	factory := datasource.NewDatasourceAdapterFactory(cfg.Codec, cfg.EncryptionEnabled)
	return &serviceFixture{
		repo:    repo,
		tester:  tester,
		service: NewDatasourceService(repo, checker, tester, factory, cfg, zap.NewNop()),
	}
}

func newMockCheckerService(checker *mockChecker) (*mockDatasourceRepository, DatasourceService) {
	repo := newMockDatasourceRepository()
	svc := NewDatasourceService(repo, checker, &mockTester{result: true}, &mockAdapterFactory{}, DatasourceServiceConfig{}, zap.NewNop())
	return repo, svc
}

func (f *serviceFixture) seed(t *testing.T, owner *models.User, name string) *models.Datasource {
	t.Helper()
	return f.repo.add(&models.Datasource{
		Name:             name,
		Type:             models.DbTypePostgreSQL,
		UserID:           owner.ID,
		UserName:         owner.UserName,
		ConnectionParams: strings.Replace(dataSource01Params, `"password":""`, `"password":"stored-secret"`, 1),
	})
}

func TestDatasourceService_Create(t *testing.T) {
	f := newServiceFixture(DatasourceServiceConfig{})
	ctx := context.Background()
	admin := adminUser()

	ds, err := f.service.Create(ctx, admin, postgresDTO("dataSource01"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ds.ID)
	assert.Equal(t, "dataSource01", ds.Name)
	assert.Equal(t, models.DbTypePostgreSQL, ds.Type)
	assert.Equal(t, admin.ID, ds.UserID)
	assert.Equal(t, dataSource01Params, ds.ConnectionParams)

	_, err = f.service.Create(ctx, admin, postgresDTO("dataSource01"))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Equal(t, 1, f.repo.insertCalls)
}

func TestDatasourceService_Create_TrimmedNameCollides(t *testing.T) {
	f := newServiceFixture(DatasourceServiceConfig{})
	ctx := context.Background()

	_, err := f.service.Create(ctx, adminUser(), postgresDTO("dataSource01"))
	require.NoError(t, err)

	_, err = f.service.Create(ctx, adminUser(), postgresDTO("  dataSource01\t"))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	// uniqueness is case-sensitive
	_, err = f.service.Create(ctx, adminUser(), postgresDTO("DATASOURCE01"))
	assert.NoError(t, err)
}

func TestDatasourceService_Create_OperationDenied(t *testing.T) {
	checker := &mockChecker{allowOperation: false, allowResource: true}
	repo, svc := newMockCheckerService(checker)

	dto := postgresDTO("dataSource01")
	dto.Note = randomStringWithLength(t, 512)

	// denial is reported before the note length error
	_, err := svc.Create(context.Background(), adminUser(), dto)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	assert.Zero(t, repo.insertCalls)
}

func TestDatasourceService_Create_NoteTooLong(t *testing.T) {
	f := newServiceFixture(DatasourceServiceConfig{})

	dto := postgresDTO("dataSource01")
	dto.Note = randomStringWithLength(t, 512)

	_, err := f.service.Create(context.Background(), adminUser(), dto)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, f.repo.insertCalls)
}

func TestDatasourceService_Create_NameValidation(t *testing.T) {
	f := newServiceFixture(DatasourceServiceConfig{MaxNameLength: 8})

	tests := []struct {
		name    string
		dsName  string
		wantErr error
	}{
		{"empty", "", apperrors.ErrValidation},
		{"blank", "   ", apperrors.ErrValidation},
		{"too long", "abcdefghi", apperrors.ErrValidation},
		{"multibyte within limit", "数据源数据源数据", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Create(context.Background(), adminUser(), postgresDTO(tt.dsName))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDatasourceService_Create_InsertConflict(t *testing.T) {
	f := newServiceFixture(DatasourceServiceConfig{})
	f.repo.insertErr = apperrors.ErrConflict

	_, err := f.service.Create(context.Background(), adminUser(), postgresDTO("dataSource01"))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Equal(t, 1, f.repo.insertCalls)
}

func TestDatasourceService_Create_InsertErrorPassesThrough(t *testing.T) {
	f := newServiceFixture(DatasourceServiceConfig{})
	storeErr := errors.New("connection reset")
	f.repo.insertErr = storeErr

	_, err := f.service.Create(context.Background(), adminUser(), postgresDTO("dataSource01"))
	assert.ErrorIs(t, err, storeErr)
	assert.Empty(t, apperrors.CodeOf(err))
}

func TestDatasourceService_Create_InvalidParams(t *testing.T) {
	f := newServiceFixture(DatasourceServiceConfig{})

	dto := postgresDTO("dataSource01")
	dto.Port = 0

	_, err := f.service.Create(context.Background(), adminUser(), dto)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, f.repo.insertCalls)
}

func TestDatasourceService_Create_EncryptsPassword(t *testing.T) {
	f := newServiceFixture(DatasourceServiceConfig{EncryptionEnabled: true, Codec: crypto.NewSaltedCodec("")})

	dto := postgresDTO("dataSource01")
	dto.Password = "123456"

	ds, err := f.service.Create(context.Background(), adminUser(), dto)
	require.NoError(t, err)

	param, err := models.ParseConnectionParam(ds.ConnectionParams)
	require.NoError(t, err)
	assert.Equal(t, "IUAjJCVeJipNVEl6TkRVMg==", param.Password)
}

func TestDatasourceService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		_, err := f.service.Update(ctx, adminUser(), uuid.New(), postgresDTO("dataSource01-update"))
		assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	})

	t.Run("general user on someone else's datasource", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		existing := f.seed(t, generalUser(), "dataSource01")

		_, err := f.service.Update(ctx, generalUser(), existing.ID, postgresDTO("dataSource01-update"))
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
		assert.Zero(t, f.repo.updateCalls)
	})

	t.Run("administrator on someone else's datasource", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		existing := f.seed(t, generalUser(), "dataSource01")

		updated, err := f.service.Update(ctx, adminUser(), existing.ID, postgresDTO("dataSource01-update"))
		require.NoError(t, err)
		assert.Equal(t, "dataSource01-update", updated.Name)
		assert.Equal(t, existing.UserID, updated.UserID)
	})

	t.Run("owner", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		owner := generalUser()
		existing := f.seed(t, owner, "dataSource01")

		_, err := f.service.Update(ctx, owner, existing.ID, postgresDTO("dataSource01"))
		assert.NoError(t, err)
	})

	t.Run("grantee", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		grantee := generalUser()
		existing := f.seed(t, generalUser(), "dataSource01")
		require.NoError(t, f.repo.GrantDatasources(ctx, grantee.ID, []uuid.UUID{existing.ID}))

		_, err := f.service.Update(ctx, grantee, existing.ID, postgresDTO("dataSource01"))
		assert.NoError(t, err)
	})

	t.Run("rename onto another datasource", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		admin := adminUser()
		existing := f.seed(t, admin, "dataSource01")
		f.seed(t, admin, "dataSource01-update")

		_, err := f.service.Update(ctx, admin, existing.ID, postgresDTO("dataSource01-update"))
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	})

	t.Run("note too long", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		admin := adminUser()
		existing := f.seed(t, admin, "dataSource01")

		dto := postgresDTO("dataSource01-update")
		dto.Note = randomStringWithLength(t, 512)
		_, err := f.service.Update(ctx, admin, existing.ID, dto)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Zero(t, f.repo.updateCalls)
	})

	t.Run("update conflict", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		admin := adminUser()
		existing := f.seed(t, admin, "dataSource01")
		f.repo.updateErr = apperrors.ErrConflict

		_, err := f.service.Update(ctx, admin, existing.ID, postgresDTO("dataSource01-update"))
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	})
}

func TestDatasourceService_Update_PasswordHandling(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(DatasourceServiceConfig{EncryptionEnabled: true, Codec: crypto.NewSaltedCodec("")})
	admin := adminUser()
	existing := f.seed(t, admin, "dataSource01")

	// blank password keeps the stored value untouched
	_, err := f.service.Update(ctx, admin, existing.ID, postgresDTO("dataSource01"))
	require.NoError(t, err)
	param, err := models.ParseConnectionParam(f.repo.lastUpdated.ConnectionParams)
	require.NoError(t, err)
	assert.Equal(t, "stored-secret", param.Password)

	// a new password is encoded
	dto := postgresDTO("dataSource01")
	dto.Password = "123456"
	_, err = f.service.Update(ctx, admin, existing.ID, dto)
	require.NoError(t, err)
	param, err = models.ParseConnectionParam(f.repo.lastUpdated.ConnectionParams)
	require.NoError(t, err)
	assert.Equal(t, "IUAjJCVeJipNVEl6TkRVMg==", param.Password)
}

func TestDatasourceService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		err := f.service.Delete(ctx, adminUser(), uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	})

	t.Run("general user denied", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		existing := f.seed(t, generalUser(), "dataSource01")

		err := f.service.Delete(ctx, generalUser(), existing.ID)
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
		assert.Zero(t, f.repo.deleteCalls)
	})

	t.Run("administrator", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		existing := f.seed(t, generalUser(), "dataSource01")

		require.NoError(t, f.service.Delete(ctx, adminUser(), existing.ID))
		_, err := f.repo.SelectByID(ctx, existing.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("operation denied", func(t *testing.T) {
		repo, svc := newMockCheckerService(&mockChecker{allowOperation: false, allowResource: true})
		existing := repo.add(&models.Datasource{Name: "dataSource01", Type: models.DbTypePostgreSQL})

		err := svc.Delete(ctx, adminUser(), existing.ID)
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	})
}

func TestDatasourceService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("not found before any permission check", func(t *testing.T) {
		checker := &mockChecker{}
		_, svc := newMockCheckerService(checker)

		_, err := svc.Get(ctx, uuid.New(), generalUser())
		assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
		assert.Zero(t, checker.operationCalls)
		assert.Zero(t, checker.resourceCalls)
	})

	t.Run("resource denied", func(t *testing.T) {
		checker := &mockChecker{allowOperation: true, allowResource: false}
		repo, svc := newMockCheckerService(checker)
		existing := repo.add(&models.Datasource{Name: "dataSource01", Type: models.DbTypePostgreSQL, ConnectionParams: dataSource01Params})

		_, err := svc.Get(ctx, existing.ID, generalUser())
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
		assert.Equal(t, 1, checker.operationCalls)
		assert.Equal(t, 1, checker.resourceCalls)
	})

	t.Run("success blanks password", func(t *testing.T) {
		f := newServiceFixture(DatasourceServiceConfig{})
		owner := generalUser()
		existing := f.seed(t, owner, "dataSource01")

		dto, err := f.service.Get(ctx, existing.ID, owner)
		require.NoError(t, err)

		pg, ok := dto.(*models.PostgreSQLDatasourceParamDTO)
		require.True(t, ok)
		assert.Equal(t, existing.ID, pg.ID)
		assert.Equal(t, "dataSource01", pg.Name)
		assert.Equal(t, "172.16.133.200", pg.Host)
		assert.Equal(t, 5432, pg.Port)
		assert.Equal(t, "dolphinscheduler", pg.Database)
		assert.Equal(t, "postgres", pg.UserName)
		assert.Empty(t, pg.Password)
	})
}

func TestDatasourceService_ListPaging(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(DatasourceServiceConfig{})

	owner := generalUser()
	grantee := generalUser()
	stranger := generalUser()

	owned := f.seed(t, owner, "owned")
	shared := f.seed(t, adminUser(), "shared")
	f.seed(t, adminUser(), "private")
	require.NoError(t, f.repo.GrantDatasources(ctx, grantee.ID, []uuid.UUID{shared.ID}))

	t.Run("administrator sees everything", func(t *testing.T) {
		page, err := f.service.ListPaging(ctx, adminUser(), "", 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Nil(t, f.repo.pagingIDs)
		for _, ds := range page.TotalList {
			param, err := models.ParseConnectionParam(ds.ConnectionParams)
			require.NoError(t, err)
			assert.Equal(t, MaskedPassword, param.Password)
		}
	})

	t.Run("owner sees owned only", func(t *testing.T) {
		page, err := f.service.ListPaging(ctx, owner, "", 1, 10)
		require.NoError(t, err)
		require.Len(t, page.TotalList, 1)
		assert.Equal(t, owned.ID, page.TotalList[0].ID)
	})

	t.Run("grantee sees granted only", func(t *testing.T) {
		page, err := f.service.ListPaging(ctx, grantee, "", 1, 10)
		require.NoError(t, err)
		require.Len(t, page.TotalList, 1)
		assert.Equal(t, shared.ID, page.TotalList[0].ID)
	})

	t.Run("nothing visible runs no query", func(t *testing.T) {
		before := f.repo.pagingCalls
		page, err := f.service.ListPaging(ctx, stranger, "", 1, 10)
		require.NoError(t, err)
		assert.Zero(t, page.Total)
		assert.Empty(t, page.TotalList)
		assert.Equal(t, before, f.repo.pagingCalls)
	})

	t.Run("search", func(t *testing.T) {
		page, err := f.service.ListPaging(ctx, adminUser(), "SHA", 1, 10)
		require.NoError(t, err)
		require.Len(t, page.TotalList, 1)
		assert.Equal(t, shared.ID, page.TotalList[0].ID)
	})

	t.Run("invalid page", func(t *testing.T) {
		_, err := f.service.ListPaging(ctx, adminUser(), "", 0, 10)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestDatasourceService_List(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(DatasourceServiceConfig{})

	owner := generalUser()
	pg := f.seed(t, owner, "pg")
	mysql := f.repo.add(&models.Datasource{
		Name:             "mysql",
		Type:             models.DbTypeMySQL,
		UserID:           owner.ID,
		ConnectionParams: `{"user":"root","password":"","address":"jdbc:mysql://127.0.0.1:3306","database":"im"}`,
	})
	f.seed(t, adminUser(), "other")

	all, err := f.service.List(ctx, adminUser(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyMySQL, err := f.service.List(ctx, adminUser(), models.DbTypeMySQL)
	require.NoError(t, err)
	require.Len(t, onlyMySQL, 1)
	assert.Equal(t, mysql.ID, onlyMySQL[0].ID)

	mine, err := f.service.List(ctx, owner, models.DbTypePostgreSQL)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, pg.ID, mine[0].ID)

	none, err := f.service.List(ctx, generalUser(), "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDatasourceService_AuthorizedFor(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(DatasourceServiceConfig{})

	owner := generalUser()
	target := generalUser()
	mine := f.seed(t, owner, "mine")
	theirs := f.seed(t, adminUser(), "theirs")
	require.NoError(t, f.repo.GrantDatasources(ctx, target.ID, []uuid.UUID{mine.ID, theirs.ID}))

	authed, err := f.service.AuthorizedFor(ctx, adminUser(), target.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{mine.ID, theirs.ID}, idsOf(authed))

	authed, err = f.service.AuthorizedFor(ctx, owner, target.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mine.ID}, idsOf(authed))
}

func TestDatasourceService_UnauthorizedFor(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(DatasourceServiceConfig{})

	owner := generalUser()
	target := generalUser()
	granted := f.seed(t, owner, "granted")
	ungranted := f.seed(t, owner, "ungranted")
	adminOwned := f.seed(t, adminUser(), "admin-owned")
	f.seed(t, target, "targets-own")
	require.NoError(t, f.repo.GrantDatasources(ctx, target.ID, []uuid.UUID{granted.ID}))

	// administrators see everything the target neither owns nor was granted
	unauthed, err := f.service.UnauthorizedFor(ctx, adminUser(), target.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{ungranted.ID, adminOwned.ID}, idsOf(unauthed))

	// general users only offer their own datasources
	unauthed, err = f.service.UnauthorizedFor(ctx, owner, target.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ungranted.ID}, idsOf(unauthed))

	unauthed, err = f.service.UnauthorizedFor(ctx, generalUser(), target.ID)
	require.NoError(t, err)
	assert.Empty(t, unauthed)
}

func TestDatasourceService_Grant(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(DatasourceServiceConfig{})

	target := generalUser()
	ds := f.seed(t, adminUser(), "dataSource01")

	err := f.service.Grant(ctx, generalUser(), target.ID, []uuid.UUID{ds.ID})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	require.NoError(t, f.service.Grant(ctx, adminUser(), target.ID, []uuid.UUID{ds.ID, ds.ID}))
	assert.Equal(t, []uuid.UUID{ds.ID}, f.repo.grants[target.ID])

	// the grantee can now read it
	_, err = f.service.Get(ctx, ds.ID, target)
	assert.NoError(t, err)
}

func TestDatasourceService_VerifyName(t *testing.T) {
	f := newServiceFixture(DatasourceServiceConfig{})
	f.seed(t, adminUser(), "dataSource1")

	assert.ErrorIs(t, f.service.VerifyName(context.Background(), "dataSource1"), apperrors.ErrAlreadyExists)
	assert.ErrorIs(t, f.service.VerifyName(context.Background(), " dataSource1 "), apperrors.ErrAlreadyExists)
	assert.NoError(t, f.service.VerifyName(context.Background(), "dataSource2"))
}

func TestDatasourceService_CheckConnection(t *testing.T) {
	f := newServiceFixture(DatasourceServiceConfig{})
	param, err := models.ParseConnectionParam(dataSource01Params)
	require.NoError(t, err)

	f.tester.result = false
	err = f.service.CheckConnection(context.Background(), models.DbTypePostgreSQL, param)
	assert.ErrorIs(t, err, apperrors.ErrConnectionTestFailure)

	f.tester.result = true
	assert.NoError(t, f.service.CheckConnection(context.Background(), models.DbTypePostgreSQL, param))
	assert.Equal(t, 2, f.tester.testCalls)
	assert.Zero(t, f.repo.insertCalls)
}

func TestDatasourceService_TestConnection(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(DatasourceServiceConfig{})

	err := f.service.TestConnection(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	ds := f.seed(t, adminUser(), "dataSource01")
	require.NoError(t, f.service.TestConnection(ctx, ds.ID))
	assert.Equal(t, models.DbTypePostgreSQL, f.tester.lastDbType)
	assert.Equal(t, "stored-secret", f.tester.lastParam.Password)

	f.tester.result = false
	assert.ErrorIs(t, f.service.TestConnection(ctx, ds.ID), apperrors.ErrConnectionTestFailure)

	broken := f.repo.add(&models.Datasource{Name: "broken", Type: models.DbTypeOracle, ConnectionParams: "not json"})
	assert.ErrorIs(t, f.service.TestConnection(ctx, broken.ID), apperrors.ErrConnectFailed)
}

func TestDatasourceService_ListDatabases(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(DatasourceServiceConfig{})

	_, err := f.service.ListDatabases(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	ds := f.seed(t, adminUser(), "dataSource01")
	f.tester.databases = []string{"dolphinscheduler", "postgres"}
	dbs, err := f.service.ListDatabases(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"dolphinscheduler", "postgres"}, dbs)

	f.tester.listErr = apperrors.Wrap(apperrors.CodeQuery, errors.New("permission denied for pg_database"), "query datasource error")
	_, err = f.service.ListDatabases(ctx, ds.ID)
	assert.ErrorIs(t, err, apperrors.ErrQuery)

	broken := f.repo.add(&models.Datasource{Name: "broken", Type: models.DbTypeMySQL, ConnectionParams: ""})
	_, err = f.service.ListDatabases(ctx, broken.ID)
	assert.ErrorIs(t, err, apperrors.ErrConnectFailed)
}

func TestDatasourceService_ListTypes(t *testing.T) {
	f := newServiceFixture(DatasourceServiceConfig{})

	var types []models.DbType
	for _, info := range f.service.ListTypes() {
		types = append(types, info.Type)
	}
	assert.Equal(t, models.DbTypes, types)
}

func TestDatasourceService_AuditTrail(t *testing.T) {
	ctx := context.Background()
	core, recorded := observer.New(zapcore.InfoLevel)
	f := newServiceFixture(DatasourceServiceConfig{Auditor: audit.NewSecurityAuditor(zap.New(core))})

	owner := generalUser()
	target := generalUser()
	ds := f.seed(t, owner, "dataSource01")

	_, err := f.service.Get(ctx, ds.ID, generalUser())
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	require.NoError(t, f.service.Grant(ctx, adminUser(), target.ID, []uuid.UUID{ds.ID}))
	require.NoError(t, f.service.Delete(ctx, owner, ds.ID))

	logs := recorded.FilterLoggerName("security_audit").All()
	require.Len(t, logs, 3)
	assert.Equal(t, "Permission denied", logs[0].Message)
	assert.Equal(t, permission.OpDatasourceView, logs[0].ContextMap()["operation"])
	assert.Equal(t, "Datasource grants changed", logs[1].Message)
	assert.Equal(t, target.ID.String(), logs[1].ContextMap()["target_user_id"])
	assert.Equal(t, "Datasource deleted", logs[2].Message)
	assert.Equal(t, ds.ID.String(), logs[2].ContextMap()["datasource_id"])
}
