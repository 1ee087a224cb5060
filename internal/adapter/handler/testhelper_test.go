package handler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/freezer-inventory/internal/adapter/storage"
	"github.com/rl1809/freezer-inventory/internal/core/service"
)

func newInventory(t *testing.T) *service.InventoryService {
	t.Helper()
	repo := storage.NewCSVAdapter(filepath.Join(t.TempDir(), "inventory.csv"))
	svc, _, err := service.NewInventoryService(context.Background(), repo, []string{"-18", "-12"})
	require.NoError(t, err)
	return svc
}
