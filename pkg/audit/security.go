// Package audit provides security audit logging for SIEM consumption.
// Authorization denials and changes to who may reach a datasource are logged
// in structured JSON format under the "security_audit" logger namespace.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventPermissionDenied is logged when an operation or resource check rejects a caller.
	EventPermissionDenied SecurityEventType = "permission_denied"
	// EventGrantChanged is logged when an administrator replaces a user's grant set.
	EventGrantChanged SecurityEventType = "datasource_grant_changed"
	// EventDatasourceDeleted is logged when a datasource and its grants are removed.
	EventDatasourceDeleted SecurityEventType = "datasource_deleted"
)

// SecurityEvent represents an auditable security event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	UserName  string            `json:"user_name,omitempty"`
	UserType  string            `json:"user_type,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// PermissionDeniedDetails names the rejected operation and the datasources it targeted.
type PermissionDeniedDetails struct {
	Operation     string      `json:"operation"`
	DatasourceIDs []uuid.UUID `json:"datasource_ids,omitempty"`
}

// GrantDetails describes a replaced grant set.
type GrantDetails struct {
	TargetUserID  uuid.UUID   `json:"target_user_id"`
	DatasourceIDs []uuid.UUID `json:"datasource_ids"`
}

// DeletionDetails identifies a removed datasource.
type DeletionDetails struct {
	DatasourceID uuid.UUID     `json:"datasource_id"`
	Name         string        `json:"name"`
	Type         models.DbType `json:"type"`
	OwnerID      uuid.UUID     `json:"owner_id"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogPermissionDenied records a rejected operation at WARN level.
//
// Example usage:
//
//	auditor.LogPermissionDenied(user, permission.OpDatasourceDelete, ds.ID)
func (a *SecurityAuditor) LogPermissionDenied(user *models.User, operation string, datasourceIDs ...uuid.UUID) {
	event := newEvent(EventPermissionDenied, user, "warning", PermissionDeniedDetails{
		Operation:     operation,
		DatasourceIDs: datasourceIDs,
	})

	a.logger.Warn("Permission denied",
		zap.String("event_json", event.json()),
		zap.String("operation", operation),
		zap.Int("datasource_count", len(datasourceIDs)),
		zap.String("user_id", event.UserID),
		zap.String("severity", event.Severity),
	)
}

// LogGrantChanged records that targetUserID's grant set was replaced by datasourceIDs.
func (a *SecurityAuditor) LogGrantChanged(user *models.User, targetUserID uuid.UUID, datasourceIDs []uuid.UUID) {
	if datasourceIDs == nil {
		datasourceIDs = []uuid.UUID{}
	}
	event := newEvent(EventGrantChanged, user, "info", GrantDetails{
		TargetUserID:  targetUserID,
		DatasourceIDs: datasourceIDs,
	})

	a.logger.Info("Datasource grants changed",
		zap.String("event_json", event.json()),
		zap.String("target_user_id", targetUserID.String()),
		zap.Int("datasource_count", len(datasourceIDs)),
		zap.String("user_id", event.UserID),
		zap.String("severity", event.Severity),
	)
}

// LogDatasourceDeleted records the removal of ds.
func (a *SecurityAuditor) LogDatasourceDeleted(user *models.User, ds *models.Datasource) {
	event := newEvent(EventDatasourceDeleted, user, "info", DeletionDetails{
		DatasourceID: ds.ID,
		Name:         ds.Name,
		Type:         ds.Type,
		OwnerID:      ds.UserID,
	})

	a.logger.Info("Datasource deleted",
		zap.String("event_json", event.json()),
		zap.String("datasource_id", ds.ID.String()),
		zap.String("user_id", event.UserID),
		zap.String("severity", event.Severity),
	)
}

func newEvent(eventType SecurityEventType, user *models.User, severity string, details any) SecurityEvent {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Details:   details,
		Severity:  severity,
	}
	if user != nil {
		event.UserID = user.ID.String()
		event.UserName = user.UserName
		event.UserType = string(user.UserType)
	}
	return event
}

func (e SecurityEvent) json() string {
	// Marshaling known types should never fail
	b, _ := json.Marshal(e)
	return string(b)
}
