package sqlite

import (
	"context"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ruslano69/tdtp-deid/pkg/adapters"
	"github.com/ruslano69/tdtp-deid/pkg/adapters/base"
)

// AdapterType идентификатор адаптера SQLite
const AdapterType = "sqlite"

const driverName = "sqlite"

// Compile-time check: Adapter должен реализовывать интерфейс adapters.Adapter
var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return &Adapter{}
	})
}

// Adapter читает выборку из SQLite
type Adapter struct {
	base.SQLAdapter
	config adapters.Config
}

// Connect подключается к SQLite
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	// Одно соединение: PRAGMA действует на уровне соединения
	db, err := base.Open(ctx, driverName, cfg.DSN, 1)
	if err != nil {
		return err
	}
	// Выборка только читается
	if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		db.Close()
		return fmt.Errorf("failed to apply PRAGMA query_only: %w", err)
	}

	a.DB = db
	a.VersionQuery = "SELECT sqlite_version()"
	a.config = cfg
	return nil
}

// GetDatabaseType возвращает тип СУБД
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}
