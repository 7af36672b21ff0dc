// Package all links every datasource engine into the binary.
package all

import (
	_ "github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource/clickhouse"
	_ "github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource/hive"
	_ "github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource/oracle"
	_ "github.com/ekaya-inc/ekaya-datasource/pkg/adapters/datasource/postgres"
)
