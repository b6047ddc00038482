package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/switchbridge/internal/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func entry(deviceID string, index int, name string) model.Entry {
	id := model.NewIdentity(deviceID, index, name)
	return model.Entry{
		UUID:        id.UUID,
		DisplayName: id.Name,
		Context: model.SwitchContext{
			DeviceID:  deviceID,
			Index:     id.Index,
			SerialKey: id.SerialKey,
		},
	}
}

func TestRegisterAndRestore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	in := []model.Entry{entry("dev-1", 0, "Porch"), entry("dev-1", 1, "Garage")}
	require.NoError(t, store.Register(ctx, in))

	out, err := store.RestoreCached(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRegister_SameUUIDOverwrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, []model.Entry{entry("dev-1", 0, "Porch")}))
	require.NoError(t, store.Register(ctx, []model.Entry{entry("dev-1", 0, "Front Porch")}))

	out, err := store.RestoreCached(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Front Porch", out[0].DisplayName)
}

func TestUnregister(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	porch := entry("dev-1", 0, "Porch")
	garage := entry("dev-1", 1, "Garage")
	require.NoError(t, store.Register(ctx, []model.Entry{porch, garage}))
	require.NoError(t, store.Unregister(ctx, []model.Entry{porch}))

	out, err := store.RestoreCached(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, garage.UUID, out[0].UUID)
}

func TestUpdate_RenamesInPlace(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	porch := entry("dev-1", 0, "Porch")
	require.NoError(t, store.Register(ctx, []model.Entry{porch}))

	porch.DisplayName = "Back Porch"
	require.NoError(t, store.Update(ctx, []model.Entry{porch}))

	out, err := store.RestoreCached(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Back Porch", out[0].DisplayName)
	assert.Equal(t, porch.UUID, out[0].UUID)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "accessories.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Register(ctx, []model.Entry{entry("dev-1", 0, "Porch")}))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	out, err := reopened.RestoreCached(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
