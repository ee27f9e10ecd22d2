package mssql

import (
	"context"

	_ "github.com/denisenkom/go-mssqldb" // MS SQL Server driver

	"github.com/ruslano69/tdtp-deid/pkg/adapters"
	"github.com/ruslano69/tdtp-deid/pkg/adapters/base"
)

// AdapterType идентификатор адаптера MS SQL Server
const AdapterType = "mssql"

const driverName = "sqlserver"

// Compile-time check: Adapter должен реализовывать интерфейс adapters.Adapter
var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return &Adapter{}
	})
}

// Adapter reads sample data from MS SQL Server.
// Uses the "sqlserver" driver name (sqlserver:// URLs, @p1 parameters).
type Adapter struct {
	base.SQLAdapter
	config adapters.Config
}

// Connect implements adapters.Adapter interface.
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	db, err := base.Open(ctx, driverName, cfg.DSN, cfg.MaxConns)
	if err != nil {
		return err
	}
	a.DB = db
	a.VersionQuery = "SELECT @@VERSION"
	a.config = cfg
	return nil
}

// GetDatabaseType возвращает тип СУБД
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}
