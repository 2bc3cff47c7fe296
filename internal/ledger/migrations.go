package ledger

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

// PostgresMigrations holds the Postgres schema files.
//
//go:embed migrations/postgres/*.sql
var PostgresMigrations embed.FS

// ClickHouseMigrations holds the ClickHouse schema files. Table names are
// templated with %[1]s.
//
//go:embed migrations/clickhouse/*.sql
var ClickHouseMigrations embed.FS

// applyMigrations runs every .sql file under dir in name order.
func applyMigrations(ctx context.Context, fsys fs.FS, dir string, exec func(ctx context.Context, sql string) error) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
