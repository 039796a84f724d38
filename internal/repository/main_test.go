package repository

import (
	"context"
	"errors"
	"testing"

	"creaza/internal/docstore"
	"creaza/internal/testutil"

	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, opts ...docstore.GormOption) *docstore.GormStore {
	return testutil.NewStore(t, opts...)
}

// dropIndex removes a composite index so strict stores report it missing.
func dropIndex(t *testing.T, s *docstore.GormStore, model any, name string) {
	t.Helper()
	require.NoError(t, s.DB().Migrator().DropIndex(model, name))
}

var errStoreDown = errors.New("store unavailable")

// brokenStore fails every read and passes writes through.
type brokenStore struct {
	docstore.Store
}

func (brokenStore) Get(context.Context, docstore.Collection, string, any) error {
	return errStoreDown
}

func (brokenStore) Find(context.Context, docstore.Query, any) error {
	return errStoreDown
}

func (brokenStore) Count(context.Context, docstore.Query) (int64, error) {
	return 0, errStoreDown
}
