package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-datasource/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datasource/pkg/audit"
	"github.com/ekaya-inc/ekaya-datasource/pkg/crypto"
	"github.com/ekaya-inc/ekaya-datasource/pkg/logging"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
	"github.com/ekaya-inc/ekaya-datasource/pkg/permission"
	"github.com/ekaya-inc/ekaya-datasource/pkg/repositories"
)

// MaskedPassword replaces stored passwords in listings.
const MaskedPassword = "******"

// opDatasourceGrant labels grant denials in the audit log. Granting is
// reserved to administrators and has no configurable operation code.
const opDatasourceGrant = "datasource:grant"

// Default field limits, in Unicode code points.
const (
	DefaultMaxNameLength = 64
	DefaultMaxNoteLength = 255
)

// DatasourceService is the datasource directory: permission-gated CRUD over
// datasource records plus connectivity checks.
type DatasourceService interface {
	// Create builds canonical parameters from dto and stores a new datasource owned by user.
	Create(ctx context.Context, user *models.User, dto models.DatasourceParamDTO) (*models.Datasource, error)

	// Update replaces an existing datasource. A blank password keeps the stored one.
	Update(ctx context.Context, user *models.User, id uuid.UUID, dto models.DatasourceParamDTO) (*models.Datasource, error)

	// Delete removes a datasource and its grants.
	Delete(ctx context.Context, user *models.User, id uuid.UUID) error

	// Get returns the engine DTO for a stored datasource, with the password blanked.
	Get(ctx context.Context, id uuid.UUID, user *models.User) (models.DatasourceParamDTO, error)

	// ListPaging returns one page of the datasources visible to user whose name contains search.
	ListPaging(ctx context.Context, user *models.User, search string, pageNo, pageSize int) (*models.Page[*models.Datasource], error)

	// List returns every datasource visible to user, optionally filtered by type ("" for all).
	List(ctx context.Context, user *models.User, dbType models.DbType) ([]*models.Datasource, error)

	// AuthorizedFor returns the datasources granted to targetUserID.
	AuthorizedFor(ctx context.Context, user *models.User, targetUserID uuid.UUID) ([]*models.Datasource, error)

	// UnauthorizedFor returns the datasources user could still grant to targetUserID.
	UnauthorizedFor(ctx context.Context, user *models.User, targetUserID uuid.UUID) ([]*models.Datasource, error)

	// Grant replaces targetUserID's grant set. Administrators only.
	Grant(ctx context.Context, user *models.User, targetUserID uuid.UUID, ids []uuid.UUID) error

	// VerifyName fails with apperrors.ErrAlreadyExists if the name is taken.
	VerifyName(ctx context.Context, name string) error

	// CheckConnection probes param without persisting anything.
	CheckConnection(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) error

	// TestConnection probes a stored datasource.
	TestConnection(ctx context.Context, id uuid.UUID) error

	// ListDatabases enumerates the databases reachable through a stored datasource.
	ListDatabases(ctx context.Context, id uuid.UUID) ([]string, error)

	// ListTypes returns the registered datasource engines.
	ListTypes() []datasource.DatasourceAdapterInfo
}

// DatasourceServiceConfig holds the process-wide flags and limits read at startup.
type DatasourceServiceConfig struct {
	EncryptionEnabled bool
	Codec             crypto.SecretCodec
	KerberosEnabled   bool
	MaxNameLength     int
	MaxNoteLength     int
	// Auditor receives denials, grant changes and deletions. Nil logs through
	// the service logger.
	Auditor *audit.SecurityAuditor
}

type datasourceService struct {
	repo           repositories.DatasourceRepository
	checker        permission.Checker
	tester         datasource.ConnectivityTester
	adapterFactory datasource.DatasourceAdapterFactory
	cfg            DatasourceServiceConfig
	auditor        *audit.SecurityAuditor
	logger         *zap.Logger
}

// NewDatasourceService creates a new datasource service with dependencies.
func NewDatasourceService(
	repo repositories.DatasourceRepository,
	checker permission.Checker,
	tester datasource.ConnectivityTester,
	adapterFactory datasource.DatasourceAdapterFactory,
	cfg DatasourceServiceConfig,
	logger *zap.Logger,
) DatasourceService {
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = DefaultMaxNameLength
	}
	if cfg.MaxNoteLength <= 0 {
		cfg.MaxNoteLength = DefaultMaxNoteLength
	}
	auditor := cfg.Auditor
	if auditor == nil {
		auditor = audit.NewSecurityAuditor(logger)
	}
	return &datasourceService{
		repo:           repo,
		checker:        checker,
		tester:         tester,
		adapterFactory: adapterFactory,
		cfg:            cfg,
		auditor:        auditor,
		logger:         logger,
	}
}

func (s *datasourceService) buildOptions() datasource.BuildOptions {
	return datasource.BuildOptions{
		EncryptPassword: s.cfg.EncryptionEnabled,
		Codec:           s.cfg.Codec,
		KerberosEnabled: s.cfg.KerberosEnabled,
	}
}

func (s *datasourceService) Create(ctx context.Context, user *models.User, dto models.DatasourceParamDTO) (*models.Datasource, error) {
	if !s.checker.OperationPermissionCheck(ctx, permission.ResourceDatasource, user, permission.OpDatasourceCreate) ||
		!s.checker.ResourcePermissionCheck(ctx, permission.ResourceDatasource, nil, user) {
		return nil, s.deny(user, permission.OpDatasourceCreate)
	}
	if dto == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "datasource parameters are required")
	}
	base := dto.Base()

	name, err := s.validateName(base.Name)
	if err != nil {
		return nil, err
	}
	if err := s.checkNameUnique(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.validateNote(base.Note); err != nil {
		return nil, err
	}
	if err := datasource.CheckParams(dto); err != nil {
		return nil, err
	}

	param, err := datasource.BuildConnectionParams(dto, s.buildOptions())
	if err != nil {
		return nil, err
	}
	params, err := param.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize connection params: %w", err)
	}

	ds := &models.Datasource{
		Name:             name,
		Note:             base.Note,
		Type:             dto.Type(),
		UserID:           user.ID,
		UserName:         user.UserName,
		ConnectionParams: params,
	}
	if err := s.repo.Insert(ctx, ds); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.ErrAlreadyExists
		}
		return nil, err
	}

	s.logger.Info("Created datasource",
		zap.String("id", ds.ID.String()),
		zap.String("name", ds.Name),
		zap.String("type", string(ds.Type)),
		zap.String("user_id", user.ID.String()),
	)
	return ds, nil
}

func (s *datasourceService) Update(ctx context.Context, user *models.User, id uuid.UUID, dto models.DatasourceParamDTO) (*models.Datasource, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.checker.OperationPermissionCheck(ctx, permission.ResourceDatasource, user, permission.OpDatasourceUpdate) ||
		!s.checker.ResourcePermissionCheck(ctx, permission.ResourceDatasource, []uuid.UUID{existing.ID}, user) {
		return nil, s.deny(user, permission.OpDatasourceUpdate, existing.ID)
	}
	if dto == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "datasource parameters are required")
	}
	base := dto.Base()

	name, err := s.validateName(base.Name)
	if err != nil {
		return nil, err
	}
	if name != existing.Name {
		if err := s.checkNameUnique(ctx, name, existing.ID); err != nil {
			return nil, err
		}
	}
	if err := s.validateNote(base.Note); err != nil {
		return nil, err
	}
	if err := datasource.CheckParams(dto); err != nil {
		return nil, err
	}

	param, err := datasource.BuildConnectionParams(dto, s.buildOptions())
	if err != nil {
		return nil, err
	}
	if base.Password == "" {
		// Keep the stored password; it is already encoded.
		stored, err := models.ParseConnectionParam(existing.ConnectionParams)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored connection params: %w", err)
		}
		param.Password = stored.Password
	}
	params, err := param.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize connection params: %w", err)
	}

	existing.Name = name
	existing.Note = base.Note
	existing.Type = dto.Type()
	existing.ConnectionParams = params
	if err := s.repo.UpdateByID(ctx, existing); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrConflict):
			return nil, apperrors.ErrAlreadyExists
		case errors.Is(err, apperrors.ErrNotFound):
			return nil, apperrors.ErrResourceNotFound
		}
		return nil, err
	}

	s.logger.Info("Updated datasource",
		zap.String("id", existing.ID.String()),
		zap.String("name", existing.Name),
		zap.String("user_id", user.ID.String()),
	)
	return existing, nil
}

func (s *datasourceService) Delete(ctx context.Context, user *models.User, id uuid.UUID) error {
	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !s.checker.OperationPermissionCheck(ctx, permission.ResourceDatasource, user, permission.OpDatasourceDelete) ||
		!s.checker.ResourcePermissionCheck(ctx, permission.ResourceDatasource, []uuid.UUID{existing.ID}, user) {
		return s.deny(user, permission.OpDatasourceDelete, existing.ID)
	}

	if err := s.repo.DeleteByID(ctx, existing.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrResourceNotFound
		}
		return err
	}

	s.auditor.LogDatasourceDeleted(user, existing)
	s.logger.Info("Deleted datasource",
		zap.String("id", existing.ID.String()),
		zap.String("user_id", user.ID.String()),
	)
	return nil
}

func (s *datasourceService) Get(ctx context.Context, id uuid.UUID, user *models.User) (models.DatasourceParamDTO, error) {
	ds, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.checker.OperationPermissionCheck(ctx, permission.ResourceDatasource, user, permission.OpDatasourceView) ||
		!s.checker.ResourcePermissionCheck(ctx, permission.ResourceDatasource, []uuid.UUID{ds.ID}, user) {
		return nil, s.deny(user, permission.OpDatasourceView, ds.ID)
	}

	param, err := models.ParseConnectionParam(ds.ConnectionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection params: %w", err)
	}
	dto, err := datasource.CreateParamDTO(ds.Type, param)
	if err != nil {
		return nil, err
	}

	base := dto.Base()
	base.ID = ds.ID
	base.Name = ds.Name
	base.Note = ds.Note
	base.Password = ""
	return dto, nil
}

func (s *datasourceService) ListPaging(ctx context.Context, user *models.User, search string, pageNo, pageSize int) (*models.Page[*models.Datasource], error) {
	if pageNo < 1 || pageSize < 1 {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid page parameters: pageNo=%d pageSize=%d", pageNo, pageSize)
	}
	req := models.PageRequest{PageNo: pageNo, PageSize: pageSize}

	var ids []uuid.UUID
	if !user.IsAdmin() {
		visible, err := s.visibleIDs(ctx, user)
		if err != nil {
			return nil, err
		}
		if len(visible) == 0 {
			return models.NewPage[*models.Datasource](nil, 0, req), nil
		}
		ids = visible
	}

	page, err := s.repo.SelectPagingByIDs(ctx, ids, strings.TrimSpace(search), req)
	if err != nil {
		return nil, err
	}
	for _, ds := range page.TotalList {
		s.maskPassword(ds)
	}
	return page, nil
}

func (s *datasourceService) List(ctx context.Context, user *models.User, dbType models.DbType) ([]*models.Datasource, error) {
	var list []*models.Datasource
	if user.IsAdmin() {
		filter := models.DatasourceFilter{}
		if dbType != "" {
			filter.Type = &dbType
		}
		all, err := s.repo.SelectByMap(ctx, filter)
		if err != nil {
			return nil, err
		}
		list = all
	} else {
		ids, err := s.visibleIDs(ctx, user)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []*models.Datasource{}, nil
		}
		batch, err := s.repo.SelectBatchIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		list = make([]*models.Datasource, 0, len(batch))
		for _, ds := range batch {
			if dbType == "" || ds.Type == dbType {
				list = append(list, ds)
			}
		}
	}

	for _, ds := range list {
		s.maskPassword(ds)
	}
	return list, nil
}

func (s *datasourceService) AuthorizedFor(ctx context.Context, user *models.User, targetUserID uuid.UUID) ([]*models.Datasource, error) {
	authed, err := s.repo.QueryAuthedDatasource(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return authed, nil
	}

	// General users only see grants over datasources they own.
	owned, err := s.checker.OwnedResourceIDs(ctx, permission.ResourceDatasource, user)
	if err != nil {
		return nil, err
	}
	return filterByIDs(authed, owned, true), nil
}

func (s *datasourceService) UnauthorizedFor(ctx context.Context, user *models.User, targetUserID uuid.UUID) ([]*models.Datasource, error) {
	var candidates []*models.Datasource
	var err error
	if user.IsAdmin() {
		candidates, err = s.repo.QueryDatasourceExceptUserID(ctx, targetUserID)
	} else {
		candidates, err = s.repo.SelectByMap(ctx, models.DatasourceFilter{UserID: &user.ID})
	}
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []*models.Datasource{}, nil
	}

	authed, err := s.repo.QueryAuthedDatasource(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	authedIDs := make([]uuid.UUID, 0, len(authed))
	for _, ds := range authed {
		authedIDs = append(authedIDs, ds.ID)
	}
	return filterByIDs(candidates, authedIDs, false), nil
}

func (s *datasourceService) Grant(ctx context.Context, user *models.User, targetUserID uuid.UUID, ids []uuid.UUID) error {
	if !user.IsAdmin() {
		return s.deny(user, opDatasourceGrant, ids...)
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if err := s.repo.GrantDatasources(ctx, targetUserID, unique); err != nil {
		return err
	}

	s.auditor.LogGrantChanged(user, targetUserID, unique)
	s.logger.Info("Granted datasources",
		zap.String("target_user_id", targetUserID.String()),
		zap.Int("count", len(unique)),
		zap.String("user_id", user.ID.String()),
	)
	return nil
}

func (s *datasourceService) VerifyName(ctx context.Context, name string) error {
	return s.checkNameUnique(ctx, strings.TrimSpace(name), uuid.Nil)
}

func (s *datasourceService) CheckConnection(ctx context.Context, dbType models.DbType, param *models.ConnectionParam) error {
	if param == nil {
		return apperrors.ErrConnectFailed
	}
	if !s.tester.Test(ctx, dbType, param) {
		return apperrors.ErrConnectionTestFailure
	}
	return nil
}

func (s *datasourceService) TestConnection(ctx context.Context, id uuid.UUID) error {
	ds, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	param, err := s.storedParam(ds)
	if err != nil {
		return err
	}
	return s.CheckConnection(ctx, ds.Type, param)
}

func (s *datasourceService) ListDatabases(ctx context.Context, id uuid.UUID) ([]string, error) {
	ds, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	param, err := s.storedParam(ds)
	if err != nil {
		return nil, err
	}
	return s.tester.ListDatabases(ctx, ds.Type, param)
}

func (s *datasourceService) ListTypes() []datasource.DatasourceAdapterInfo {
	return s.adapterFactory.ListTypes()
}

// load fetches a datasource, mapping a missing record to ErrResourceNotFound.
// deny records the rejected operation and returns the denial error.
func (s *datasourceService) deny(user *models.User, operation string, ids ...uuid.UUID) error {
	s.auditor.LogPermissionDenied(user, operation, ids...)
	return apperrors.ErrPermissionDenied
}

func (s *datasourceService) load(ctx context.Context, id uuid.UUID) (*models.Datasource, error) {
	ds, err := s.repo.SelectByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrResourceNotFound
		}
		return nil, err
	}
	return ds, nil
}

func (s *datasourceService) storedParam(ds *models.Datasource) (*models.ConnectionParam, error) {
	param, err := models.ParseConnectionParam(ds.ConnectionParams)
	if err != nil {
		s.logger.Error("Failed to parse stored connection params",
			zap.String("id", ds.ID.String()),
			zap.String("connection_params", logging.SanitizeConnectionParams(ds.ConnectionParams)),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.CodeConnectFailed, err, "datasource connect failed")
	}
	return param, nil
}

func (s *datasourceService) visibleIDs(ctx context.Context, user *models.User) ([]uuid.UUID, error) {
	ids, err := s.checker.AuthorizedResourceIDs(ctx, permission.ResourceDatasource, user)
	if err != nil {
		return nil, fmt.Errorf("failed to load visible datasources: %w", err)
	}
	return ids, nil
}

func (s *datasourceService) validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperrors.New(apperrors.CodeValidation, "datasource name is required")
	}
	if utf8.RuneCountInString(name) > s.cfg.MaxNameLength {
		return "", apperrors.New(apperrors.CodeValidation, "datasource name is longer than %d characters", s.cfg.MaxNameLength)
	}
	return name, nil
}

func (s *datasourceService) validateNote(note string) error {
	if utf8.RuneCountInString(note) > s.cfg.MaxNoteLength {
		return apperrors.New(apperrors.CodeValidation, "description is longer than %d characters", s.cfg.MaxNoteLength)
	}
	return nil
}

// checkNameUnique fails when any datasource other than self carries name.
// Comparison is exact and case-sensitive.
func (s *datasourceService) checkNameUnique(ctx context.Context, name string, self uuid.UUID) error {
	matches, err := s.repo.QueryByName(ctx, name)
	if err != nil {
		return err
	}
	for _, ds := range matches {
		if self == uuid.Nil || ds.ID != self {
			return apperrors.ErrAlreadyExists
		}
	}
	return nil
}

func (s *datasourceService) maskPassword(ds *models.Datasource) {
	param, err := models.ParseConnectionParam(ds.ConnectionParams)
	if err != nil {
		s.logger.Warn("Hiding unparseable connection params",
			zap.String("id", ds.ID.String()),
			zap.Error(err))
		ds.ConnectionParams = ""
		return
	}
	if param.Password == "" {
		return
	}
	param.Password = MaskedPassword
	masked, err := param.JSON()
	if err != nil {
		ds.ConnectionParams = ""
		return
	}
	ds.ConnectionParams = masked
}

// filterByIDs keeps the datasources whose id is in ids (keep=true) or not in ids (keep=false).
func filterByIDs(list []*models.Datasource, ids []uuid.UUID, keep bool) []*models.Datasource {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	result := make([]*models.Datasource, 0, len(list))
	for _, ds := range list {
		if _, ok := set[ds.ID]; ok == keep {
			result = append(result, ds)
		}
	}
	return result
}

var _ DatasourceService = (*datasourceService)(nil)
