package mysql

import (
	"context"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/ruslano69/tdtp-deid/pkg/adapters"
	"github.com/ruslano69/tdtp-deid/pkg/adapters/base"
)

// AdapterType идентификатор адаптера MySQL
const AdapterType = "mysql"

const driverName = "mysql"

// Compile-time check: Adapter должен реализовывать интерфейс adapters.Adapter
var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return &Adapter{}
	})
}

// Adapter читает выборку из MySQL
type Adapter struct {
	base.SQLAdapter
	config adapters.Config
}

// Connect подключается к MySQL
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	db, err := base.Open(ctx, driverName, withParseTime(cfg.DSN), cfg.MaxConns)
	if err != nil {
		return err
	}
	a.DB = db
	a.VersionQuery = "SELECT VERSION()"
	a.config = cfg
	return nil
}

// GetDatabaseType возвращает тип СУБД
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}

// withParseTime включает parseTime, чтобы DATETIME читался как time.Time,
// а не как []byte в формате сервера
func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}
