package datasource

import (
	"slices"
	"sync"

	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
)

// DatasourceAdapterInfo describes a registered engine for UI discovery.
type DatasourceAdapterInfo struct {
	Type        models.DbType `json:"type"`         // "MYSQL", "ORACLE"
	DisplayName string        `json:"display_name"` // "MySQL", "Oracle Database"
	Description string        `json:"description"`  // "Connect to MySQL 5.7+, MariaDB"
	Icon        string        `json:"icon"`         // Icon identifier for UI
}

// DatasourceAdapterRegistration pairs an engine's processor with its session factory.
type DatasourceAdapterRegistration struct {
	Info           DatasourceAdapterInfo
	Processor      Processor
	SessionFactory SessionFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[models.DbType]DatasourceAdapterRegistration)
)

// Register is called by each engine's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg DatasourceAdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered engines in models.DbTypes order.
func RegisteredAdapters() []DatasourceAdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DatasourceAdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	slices.SortFunc(result, func(a, b DatasourceAdapterInfo) int {
		return typeRank(a.Type) - typeRank(b.Type)
	})
	return result
}

func typeRank(t models.DbType) int {
	if i := slices.Index(models.DbTypes, t); i >= 0 {
		return i
	}
	return len(models.DbTypes)
}

// GetProcessor returns the processor for an engine, or nil if none is registered.
func GetProcessor(dbType models.DbType) Processor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[dbType]; ok {
		return reg.Processor
	}
	return nil
}

// GetSessionFactory returns the session factory for an engine.
// Returns nil if the engine is not registered.
func GetSessionFactory(dbType models.DbType) SessionFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[dbType]; ok {
		return reg.SessionFactory
	}
	return nil
}

// IsRegistered checks if an engine is available.
func IsRegistered(dbType models.DbType) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dbType]
	return ok
}
