package models

import (
	"time"

	"github.com/google/uuid"
)

// Datasource is a stored, named definition of how to connect to an external database.
// ConnectionParams holds the canonical JSON produced by the parameter builder; the
// password inside it is encoded when datasource encryption is enabled.
type Datasource struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Note             string    `json:"note"`
	Type             DbType    `json:"type"`
	UserID           uuid.UUID `json:"user_id"` // owner
	UserName         string    `json:"user_name,omitempty"`
	ConnectionParams string    `json:"connection_params"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DatasourceFilter narrows SelectByMap queries. Nil fields are not applied.
type DatasourceFilter struct {
	UserID *uuid.UUID
	Type   *DbType
}

// DatasourceGrant lets a user see and use a datasource they do not own.
type DatasourceGrant struct {
	UserID       uuid.UUID `json:"user_id"`
	DatasourceID uuid.UUID `json:"datasource_id"`
	CreatedAt    time.Time `json:"created_at"`
}
