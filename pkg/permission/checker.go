// Package permission decides whether a user may perform an operation or touch
// specific resources.
package permission

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// ResourceType names a family of permission-checked resources.
type ResourceType string

const ResourceDatasource ResourceType = "DATASOURCE"

// Datasource operation codes.
const (
	OpDatasourceCreate     = "datasource:create"
	OpDatasourceUpdate     = "datasource:update"
	OpDatasourceDelete     = "datasource:delete"
	OpDatasourceView       = "datasource:view"
	OpDatasourceConnection = "datasource:connection"
)

// DatasourceOperations lists every datasource operation code. General users may
// attempt all of them unless configured otherwise.
var DatasourceOperations = []string{
	OpDatasourceCreate,
	OpDatasourceUpdate,
	OpDatasourceDelete,
	OpDatasourceView,
	OpDatasourceConnection,
}

// ResourceStore answers ownership and grant lookups for general users.
type ResourceStore interface {
	// OwnedDatasourceIDs returns the ids of datasources the user created.
	OwnedDatasourceIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// GrantedDatasourceIDs returns the ids of existing datasources granted to the user.
	GrantedDatasourceIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Checker is the capability-based authorization check. Administrators pass
// every check.
type Checker interface {
	// OperationPermissionCheck reports whether user may attempt the operation code.
	OperationPermissionCheck(ctx context.Context, resourceType ResourceType, user *models.User, code string) bool

	// ResourcePermissionCheck reports whether user owns, or was granted, every id.
	// An empty id list passes.
	ResourcePermissionCheck(ctx context.Context, resourceType ResourceType, ids []uuid.UUID, user *models.User) bool

	// AuthorizedResourceIDs returns the ids a general user owns or was granted.
	// Not meaningful for administrators, who see everything.
	AuthorizedResourceIDs(ctx context.Context, resourceType ResourceType, user *models.User) ([]uuid.UUID, error)

	// OwnedResourceIDs returns the ids the user owns.
	OwnedResourceIDs(ctx context.Context, resourceType ResourceType, user *models.User) ([]uuid.UUID, error)
}

type checker struct {
	store             ResourceStore
	generalOperations []string
	logger            *zap.Logger
}

// NewChecker creates a Checker. generalOperations is the allowlist of operation
// codes general users may attempt; nil means DatasourceOperations.
func NewChecker(store ResourceStore, generalOperations []string, logger *zap.Logger) Checker {
	if generalOperations == nil {
		generalOperations = DatasourceOperations
	}
	return &checker{
		store:             store,
		generalOperations: generalOperations,
		logger:            logger.Named("permission"),
	}
}

func (c *checker) OperationPermissionCheck(ctx context.Context, resourceType ResourceType, user *models.User, code string) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	if resourceType != ResourceDatasource {
		return false
	}
	allowed := slices.Contains(c.generalOperations, code)
	if !allowed {
		c.logger.Debug("Operation denied",
			zap.String("user_id", user.ID.String()),
			zap.String("operation", code))
	}
	return allowed
}

func (c *checker) ResourcePermissionCheck(ctx context.Context, resourceType ResourceType, ids []uuid.UUID, user *models.User) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	if len(ids) == 0 {
		return true
	}

	visible, err := c.AuthorizedResourceIDs(ctx, resourceType, user)
	if err != nil {
		c.logger.Error("Failed to load authorized resources, denying access",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		return false
	}

	set := make(map[uuid.UUID]struct{}, len(visible))
	for _, id := range visible {
		set[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			c.logger.Debug("Resource denied",
				zap.String("user_id", user.ID.String()),
				zap.String("resource_id", id.String()))
			return false
		}
	}
	return true
}

func (c *checker) AuthorizedResourceIDs(ctx context.Context, resourceType ResourceType, user *models.User) ([]uuid.UUID, error) {
	owned, err := c.OwnedResourceIDs(ctx, resourceType, user)
	if err != nil {
		return nil, err
	}
	granted, err := c.store.GrantedDatasourceIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(owned)+len(granted))
	result := make([]uuid.UUID, 0, len(owned)+len(granted))
	for _, ids := range [][]uuid.UUID{owned, granted} {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			result = append(result, id)
		}
	}
	return result, nil
}

func (c *checker) OwnedResourceIDs(ctx context.Context, resourceType ResourceType, user *models.User) ([]uuid.UUID, error) {
	if resourceType != ResourceDatasource {
		return nil, nil
	}
	return c.store.OwnedDatasourceIDs(ctx, user.ID)
}

// Ensure checker implements Checker at compile time.
var _ Checker = (*checker)(nil)
