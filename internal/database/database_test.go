package database

import (
	"context"
	"path/filepath"
	"testing"

	"creaza/internal/config"
	"creaza/internal/docstore"
	"creaza/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:         "test",
		StoreDriver: "sqlite",
		SQLitePath:  filepath.Join(t.TempDir(), "creaza.db"),
	}
}

func TestOpenStore_SQLiteMigratesEveryCollection(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(ctx, sqliteConfig(t))
	require.NoError(t, err)
	defer store.Close(ctx)

	gs, ok := store.(*docstore.GormStore)
	require.True(t, ok)
	for _, model := range PersistentModels() {
		assert.True(t, gs.DB().Migrator().HasTable(model), "%T table missing", model)
	}
	assert.True(t, gs.DB().Migrator().HasIndex(&models.Pin{}, "idx_pins_user_id_created_at"))
	assert.True(t, gs.DB().Migrator().HasIndex(&models.NotificationRecord{}, "idx_notifications_user_id_created_at"))
	assert.NoError(t, store.Ping(ctx))
}

func TestResetSchema_DropsAndReapplies(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	db, err := Connect(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{ID: "u1", Username: "ana", Email: "ana@example.com"}).Error)

	require.NoError(t, ResetSchema(ctx, db))
	for _, model := range PersistentModels() {
		assert.False(t, db.Migrator().HasTable(model), "%T survived reset", model)
	}

	require.NoError(t, ApplySchema(ctx, db, cfg))
	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestConnect_RejectsMongoDriver(t *testing.T) {
	_, err := Connect(context.Background(), &config.Config{StoreDriver: "mongo"})
	assert.Error(t, err)
}

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"sqlite always automigrates", config.Config{StoreDriver: "sqlite", DBSchemaMode: "sql"}, false, true, false},
		{"hybrid in development", config.Config{StoreDriver: "postgres", Env: "development"}, true, true, false},
		{"hybrid in production", config.Config{StoreDriver: "postgres", Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"sql only", config.Config{StoreDriver: "postgres", DBSchemaMode: "sql"}, true, false, false},
		{"auto refused in production", config.Config{StoreDriver: "postgres", Env: "production", DBSchemaMode: "auto"}, false, false, true},
		{"unknown mode", config.Config{StoreDriver: "postgres", DBSchemaMode: "yolo"}, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planSchema(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, plan.sql)
			assert.Equal(t, tt.wantAuto, plan.automig)
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	ms := GetMigrations()
	require.NotEmpty(t, ms)
	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, "000001_init", ms[0].String())
	assert.Contains(t, ms[0].UpScript, "idx_pins_user_id_created_at")
	assert.Contains(t, ms[0].DownScript, "DROP TABLE IF EXISTS pins")
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1, Name: "init"}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1}, registered))

	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}

func TestGetSchemaStatus_SQLiteSkipsSQLMigrations(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.DBSchemaMode = "sql"
	db, err := Connect(ctx, cfg)
	require.NoError(t, err)

	st, err := GetSchemaStatus(ctx, db, cfg)
	require.NoError(t, err)
	assert.Equal(t, "sql", st.Mode)
	assert.False(t, st.WillRunSQL)
	assert.True(t, st.WillRunAutoMigrate)
	assert.Empty(t, st.PendingMigrations)
}
