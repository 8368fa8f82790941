package casbin

import (
	"database/sql"
	"fmt"

	sqladapter "github.com/Blank-Xu/sql-adapter"
)

const (
	// DriverSQLite selects the sqlite dialect of the sql adapter.
	DriverSQLite = "sqlite3"

	DefaultPolicyTable = "casbin_rule"
)

// NewSQLAdapter stores policies in tableName, creating it when missing.
func NewSQLAdapter(sqlDB *sql.DB, dbType, tableName string) (*sqladapter.Adapter, error) {
	adapter, err := sqladapter.NewAdapter(sqlDB, dbType, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to casbin database: %w", err)
	}

	return adapter, nil
}
