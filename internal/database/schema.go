package database

import (
	"context"
	"fmt"
	"strings"

	"creaza/internal/config"
	"creaza/internal/observability"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus is what ApplySchema would do against a database, plus the
// migrations it has not applied yet.
type SchemaStatus struct {
	Mode               string
	Environment        string
	Driver             string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

type schemaPlan struct {
	mode    string
	sql     bool
	automig bool
}

// planSchema picks between the embedded SQL migrations and AutoMigrate. The
// SQL files are postgres DDL, so sqlite always uses AutoMigrate; production
// postgres never AutoMigrates.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	prod := cfg.IsProduction()

	if cfg.StoreDriver == "sqlite" {
		return schemaPlan{mode: mode, automig: true}, nil
	}
	switch mode {
	case SchemaModeSQL:
		return schemaPlan{mode: mode, sql: true}, nil
	case SchemaModeHybrid:
		return schemaPlan{mode: mode, sql: true, automig: !prod}, nil
	case SchemaModeAuto:
		if prod {
			return schemaPlan{}, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q", cfg.Env)
		}
		return schemaPlan{mode: mode, automig: true}, nil
	}
	return schemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
}

// ApplySchema brings a relational store up to the current pin, user,
// comment, notification and collection tables.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}
	if plan.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.automig {
		return nil
	}
	observability.GlobalLogger.Info("applying automigrate", "mode", plan.mode, "env", cfg.Env, "driver", cfg.StoreDriver)
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// GetSchemaStatus is read-only.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}
	st := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        cfg.Env,
		Driver:             cfg.StoreDriver,
		WillRunSQL:         plan.sql,
		WillRunAutoMigrate: plan.automig,
	}
	if !plan.sql {
		return st, nil
	}

	if st.AppliedVersions, err = NewMigrationStore(db).AppliedVersions(ctx); err != nil {
		return nil, err
	}
	applied := make(map[int]struct{}, len(st.AppliedVersions))
	for _, v := range st.AppliedVersions {
		applied[v] = struct{}{}
	}
	for _, m := range GetMigrations() {
		if _, ok := applied[m.Version]; !ok {
			st.PendingMigrations = append(st.PendingMigrations, m)
		}
	}
	return st, nil
}

// ResetSchema drops every managed table and the migration log. The next
// ApplySchema rebuilds them from scratch.
func ResetSchema(ctx context.Context, db *gorm.DB) error {
	tables := append(PersistentModels(), &MigrationLog{})
	m := db.WithContext(ctx).Migrator()
	for _, t := range tables {
		if !m.HasTable(t) {
			continue
		}
		if err := m.DropTable(t); err != nil {
			return fmt.Errorf("drop %T: %w", t, err)
		}
	}
	observability.GlobalLogger.Warn("schema reset", "tables", len(tables))
	return nil
}
