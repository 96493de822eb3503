package app

import (
	"context"
	"fmt"
	"path/filepath"

	"bankwatch/internal/storage"
)

// Migrate applies the SQL files in database.migrations_path.
func (a *App) Migrate(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("migrate: %w", storage.ErrNotConfigured)
	}
	defer closeStore()

	applied, err := store.Migrate(ctx, a.Config.Database.MigrationsPath)
	if err != nil {
		return err
	}
	for _, file := range applied {
		a.Logger.Info().Str("migration", filepath.Base(file)).Msg("migration applied")
	}
	return nil
}
