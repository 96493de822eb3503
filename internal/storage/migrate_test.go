package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationFilesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_more.sql", "001_init.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := MigrationFiles(dir)
	if err != nil {
		t.Fatalf("MigrationFiles error: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "001_init.sql" || filepath.Base(files[1]) != "002_more.sql" {
		t.Fatalf("unexpected files %v", files)
	}

	if _, err := MigrationFiles(t.TempDir()); err == nil {
		t.Fatal("expected error for an empty directory")
	}
}

func TestRepositoryMigrationsPresent(t *testing.T) {
	files, err := MigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("MigrationFiles error: %v", err)
	}
	if filepath.Base(files[0]) != "001_init.sql" {
		t.Fatalf("unexpected first migration %s", files[0])
	}
}

func TestMigrateUnconfigured(t *testing.T) {
	var store *Store
	if _, err := store.Migrate(context.Background(), "migrations"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
