package docbase

import (
	"testing"
	"time"
)

func TestDefaultConfigPassesValidation(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() should validate cleanly, got: %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.ListenAddr != "127.0.0.1:6969" {
		t.Errorf("expected default listen addr 127.0.0.1:6969, got %s", cfg.Server.ListenAddr)
	}
	if cfg.Query.DefaultTimeout != 30*time.Second {
		t.Errorf("expected default query timeout 30s, got %v", cfg.Query.DefaultTimeout)
	}
	if cfg.Query.DefaultBatchSize != DefaultBatchSize {
		t.Errorf("expected default batch size %d, got %d", DefaultBatchSize, cfg.Query.DefaultBatchSize)
	}
	if cfg.Storage.OperationSemaphore <= 0 {
		t.Errorf("expected a positive operation semaphore, got %d", cfg.Storage.OperationSemaphore)
	}
	if cfg.Export.Enabled {
		t.Errorf("expected snapshot export disabled by default")
	}
}

func TestValidateRejectsZeroOperationSemaphore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.OperationSemaphore = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error for a zero operation semaphore")
	}
	configErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if configErr.Field != "storage.operationSemaphore" {
		t.Errorf("expected field storage.operationSemaphore, got %s", configErr.Field)
	}
}

func TestValidateRejectsZeroPartitionCacheSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.PartitionCacheSize = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a zero partition cache size")
	}
}

func TestValidateRejectsZeroDefaultBatchSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Query.DefaultBatchSize = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a zero default batch size")
	}
}

func TestValidateRejectsMaxBatchSizeBelowDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Query.DefaultBatchSize = 100
	cfg.Query.MaxBatchSize = 50

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when maxBatchSize < defaultBatchSize")
	}
}

func TestValidateRejectsZeroOptimizerMaxPasses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Query.OptimizerMaxPasses = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for zero optimizer max passes")
	}
}

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Field: "storage.dataDir", Message: "must not be empty"}
	want := "config validation error for field 'storage.dataDir': must not be empty"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestIsReservedDatabase(t *testing.T) {
	cases := map[string]bool{
		"__system__":    true,
		"__system__foo": true,
		"default":       false,
		"shop":          false,
		"__systemfoo":   false,
	}
	for name, want := range cases {
		if got := IsReservedDatabase(name); got != want {
			t.Errorf("IsReservedDatabase(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestIsReservedTable(t *testing.T) {
	for _, name := range ReservedSystemTables {
		if !IsReservedTable(name) {
			t.Errorf("expected %q to be reserved", name)
		}
	}
	if IsReservedTable("orders") {
		t.Error("expected 'orders' not to be reserved")
	}
}
