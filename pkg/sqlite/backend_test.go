package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tabtree/pkg/types"
)

func TestNewBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(nil)
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	defer b.Detach()

	s := types.NewStateStore()
	s.Ensure(1).Tabs[1] = &types.TabNode{ID: 1, URL: "https://a", ParentTabID: types.NoTab, ChildTabIDs: []types.TabID{}}
	require.NoError(t, b.Save(ctx, s))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}
