// Command migrate manages the schema of the gallery store: SQL migrations and
// AutoMigrate for postgres/sqlite, indexes for mongo.
//
//	migrate up | auto | status | down <version> | reset | indexes
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"creaza/internal/config"
	"creaza/internal/database"
	"creaza/internal/docstore"
	"creaza/internal/observability"

	"gorm.io/gorm"
)

var log = observability.GlobalLogger

type sqlCommand func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var sqlCommands = map[string]sqlCommand{
	"up":     up,
	"auto":   auto,
	"status": status,
	"down":   down,
	"reset":  reset,
}

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage()) }
	flag.Parse()
	if err := run(context.Background(), flag.Args()); err != nil {
		log.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func usage() error {
	names := []string{"indexes"}
	for name := range sqlCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("usage: migrate <%s> [version]", strings.Join(names, "|"))
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage()
	}
	name := strings.ToLower(strings.TrimSpace(args[0]))

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.SetLevel(cfg.LogLevel)

	if cfg.StoreDriver == "mongo" {
		if name != "indexes" {
			return errors.New("STORE_DRIVER=mongo only supports the indexes command")
		}
		return mongoIndexes(ctx, cfg)
	}

	cmd, ok := sqlCommands[name]
	if !ok {
		return usage()
	}
	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.StoreDriver, err)
	}
	return cmd(ctx, db, cfg, args[1:])
}

func mongoIndexes(ctx context.Context, cfg *config.Config) error {
	client, err := database.ConnectMongo(ctx, cfg)
	if err != nil {
		return err
	}
	store := docstore.NewMongoStore(client, client.Database(cfg.MongoDatabase))
	defer store.Close(ctx)
	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	log.Info("mongo indexes ensured", "database", cfg.MongoDatabase)
	return nil
}

func up(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("sql migrations: %w", err)
	}
	log.Info("sql migrations applied")
	return nil
}

func auto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	log.Info("automigrate applied", "models", len(database.PersistentModels()))
	return nil
}

func status(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status: %w", err)
	}
	log.Info("schema status",
		"driver", st.Driver, "mode", st.Mode, "env", st.Environment,
		"run_sql", st.WillRunSQL, "run_auto", st.WillRunAutoMigrate,
		"applied", len(st.AppliedVersions), "pending", len(st.PendingMigrations))
	for _, m := range st.PendingMigrations {
		log.Info("pending migration", "version", m.Version, "name", m.Name)
	}
	return nil
}

func down(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: migrate down <version>")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("rollback %d: %w", version, err)
	}
	log.Info("migration rolled back", "version", version)
	return nil
}

func reset(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	if cfg.IsProduction() {
		return fmt.Errorf("refusing to reset the schema in %q", cfg.Env)
	}
	if err := database.ResetSchema(ctx, db); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("apply after reset: %w", err)
	}
	log.Info("schema reset and reapplied")
	return nil
}
