package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/iwvelando/loan-compare/internal/config"
	"github.com/iwvelando/loan-compare/internal/store/memory"
	"go.uber.org/zap"
)

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    config.LoggingConfig
		override  string
		wantError bool
	}{
		{"defaults", config.LoggingConfig{}, "", false},
		{"console debug", config.LoggingConfig{Level: "debug", Format: "console"}, "", false},
		{"override wins", config.LoggingConfig{Level: "bogus"}, "warn", false},
		{"invalid level", config.LoggingConfig{Level: "loud"}, "", true},
		{"invalid format", config.LoggingConfig{Format: "xml"}, "", true},
		{"output file", config.LoggingConfig{OutputFile: filepath.Join(t.TempDir(), "logs", "app.log")}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initializeLogger(tt.config, tt.override)
			if tt.wantError {
				if err == nil {
					t.Errorf("initializeLogger() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("initializeLogger() error = %v", err)
			}
			_ = logger.Sync()
		})
	}
}

func TestOpenStoreFromDataset(t *testing.T) {
	conf := config.Default()
	conf.Dataset.Path = filepath.Join("..", "..", "dataset.yaml.example")

	st, err := openStore(context.Background(), conf, zap.NewNop())
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	defer st.Close()

	if _, ok := st.(*memory.Store); !ok {
		t.Fatalf("expected a memory store, got %T", st)
	}
	banks, err := st.ListBanks(context.Background())
	if err != nil {
		t.Fatalf("ListBanks() error = %v", err)
	}
	if len(banks) != 3 {
		t.Errorf("expected 3 banks from the sample dataset, got %d", len(banks))
	}
}

func TestOpenStoreEmpty(t *testing.T) {
	st, err := openStore(context.Background(), config.Default(), zap.NewNop())
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	defer st.Close()

	banks, err := st.ListBanks(context.Background())
	if err != nil {
		t.Fatalf("ListBanks() error = %v", err)
	}
	if len(banks) != 0 {
		t.Errorf("expected an empty store, got %d banks", len(banks))
	}
}

func TestOpenStoreMissingDataset(t *testing.T) {
	conf := config.Default()
	conf.Dataset.Path = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := openStore(context.Background(), conf, zap.NewNop()); err == nil {
		t.Error("openStore() expected error for a missing dataset")
	}
}
