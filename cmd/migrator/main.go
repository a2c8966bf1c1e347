package main

import (
	"errors"
	"flag"
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"strings"
)

const (
	migrationUp   = "up"
	migrationDown = "down"
)

var (
	migrationType   = flag.String("migration-type", migrationUp, "up or down")
	migrationsPath  = flag.String("migrations-path", "./migrations", "path to migrations")
	migrationsTable = flag.String("migrations-table", "schema_migrations", "name of migrations table")
)

func mustMigrate(m *migrate.Migrate, direction string) {
	var err error
	if direction == migrationDown {
		err = m.Down()
	} else {
		err = m.Up()
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")
			return
		}

		panic(err)
	}

	fmt.Printf("migrations %s applied successfully\n", direction)
}

func main() {
	flag.Parse()
	cfg := config.Parse[config.MigratorConfig]()

	if *migrationType != migrationUp && *migrationType != migrationDown {
		panic("migration-type must be up or down")
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", *migrationsPath), dbUrl(cfg.DatabaseUri, *migrationsTable))
	if err != nil {
		panic(err)
	}

	defer m.Close()

	mustMigrate(m, *migrationType)
}

// dbUrl rewrites a postgres:// connection string for the pgx/v5 migrate driver.
func dbUrl(uri, migrationsTable string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(uri, prefix) {
			uri = "pgx5://" + strings.TrimPrefix(uri, prefix)
			break
		}
	}

	separator := "?"
	if strings.Contains(uri, "?") {
		separator = "&"
	}

	return fmt.Sprintf("%s%sx-migrations-table=%s", uri, separator, migrationsTable)
}
