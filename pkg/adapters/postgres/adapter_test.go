package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/ruslano69/tdtp-deid/pkg/adapters"
)

// Интеграционный тест: требует PostgreSQL (TEST_POSTGRES_DSN)
func TestPostgresQuery(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	a, err := adapters.New(ctx, adapters.Config{Type: AdapterType, DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(ctx)

	tbl, err := a.Query(ctx, "SELECT 34 AS age, '94110' AS zip, NULL::text AS city")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if tbl.Len() != 1 || tbl.Rows[0][0] != "34" || tbl.Rows[0][1] != "94110" || tbl.Rows[0][2] != "" {
		t.Errorf("table = %+v", tbl)
	}
}

func TestConnectBadDSN(t *testing.T) {
	a := &Adapter{}
	if err := a.Connect(context.Background(), adapters.Config{DSN: "://bad"}); err == nil {
		t.Error("expected error for malformed DSN")
	}
	if err := a.Ping(context.Background()); err == nil {
		t.Error("expected error when not connected")
	}
}
