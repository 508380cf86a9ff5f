package docbase

import "time"

// Config consolidates every tunable setting of the server, grouped by
// concern the way the teacher groups its Config (spec.md §6).
type Config struct {
	Server  ServerConfig  `json:"server"`
	Storage StorageConfig `json:"storage"`
	Query   QueryConfig   `json:"query"`
	Logging LoggingConfig `json:"logging"`
	Export  ExportConfig  `json:"export"`
}

// ServerConfig contains TCP listener settings (spec.md §6).
type ServerConfig struct {
	ListenAddr     string        `json:"listenAddr"`
	AcceptBacklog  int           `json:"acceptBacklog"`
	WorkerPoolSize int           `json:"workerPoolSize"`
	ReadTimeout    time.Duration `json:"readTimeout"`
	WriteTimeout   time.Duration `json:"writeTimeout"`
}

// StorageConfig contains the engine-tuning knobs spec.md §6 names: write
// buffer size/count, compaction triggers, block cache, open files,
// direct I/O, WAL sync, target file size, bytes per level, parallelism,
// plus the gate/cache sizes spec.md §4.1/§5 require.
type StorageConfig struct {
	DataDir                 string `json:"dataDir"`
	WriteBufferSizeBytes    int64  `json:"writeBufferSizeBytes"`
	WriteBufferCount        int    `json:"writeBufferCount"`
	MaxBackgroundJobs       int    `json:"maxBackgroundJobs"`
	Level0CompactionTrigger int    `json:"level0CompactionTrigger"`
	BlockCacheSizeBytes     int64  `json:"blockCacheSizeBytes"`
	MaxOpenFiles            int    `json:"maxOpenFiles"`
	DirectIO                bool   `json:"directIO"`
	WALSyncBytes            int64  `json:"walSyncBytes"`
	TargetFileSizeBaseBytes int64  `json:"targetFileSizeBaseBytes"`
	MaxBytesPerLevelBase    int64  `json:"maxBytesPerLevelBase"`
	Parallelism             int    `json:"parallelism"`

	// OperationSemaphore bounds concurrent in-flight storage operations
	// (spec.md §4.1/§5).
	OperationSemaphore int `json:"operationSemaphore"`
	// PartitionCacheSize bounds the column-family/partition handle cache
	// (spec.md §4.1/§9).
	PartitionCacheSize int `json:"partitionCacheSize"`
}

// QueryConfig contains query execution defaults (spec.md §3/§5).
type QueryConfig struct {
	DefaultTimeout  time.Duration `json:"defaultTimeout"`
	DefaultBatchSize uint32       `json:"defaultBatchSize"`
	MaxBatchSize    uint32        `json:"maxBatchSize"`
	OptimizerMaxPasses int        `json:"optimizerMaxPasses"`
}

// LoggingConfig contains logging settings (ambient stack, SPEC_FULL.md §A).
type LoggingConfig struct {
	Level            string `json:"level"`
	Format           string `json:"format"` // "json" or "console"
	EnablePlanLogging bool  `json:"enablePlanLogging"`
}

// ExportConfig contains the snapshot-exporter's settings (SPEC_FULL.md §B/§C).
type ExportConfig struct {
	Enabled         bool          `json:"enabled"`
	Interval        time.Duration `json:"interval"`
	TempDir         string        `json:"tempDir"`
	DuckDBMemoryMB  int           `json:"duckDBMemoryMB"`
	DuckDBThreads   int           `json:"duckDBThreads"`
	S3Bucket        string        `json:"s3Bucket"`
	S3Prefix        string        `json:"s3Prefix"`
	S3Region        string        `json:"s3Region"`
	S3Endpoint      string        `json:"s3Endpoint,omitempty"`
}

// ReservedDatabase is the default database created on process start if
// absent (spec.md §4.5).
const ReservedDatabase = "default"

// SystemDatabasePrefix marks reserved system namespaces that clients may
// not create or drop (spec.md §3).
const SystemDatabasePrefix = "__system__"

// ReservedSystemTables names the system tables clients may not create or
// drop (spec.md §3).
var ReservedSystemTables = []string{
	"__databases__",
	"__schemas__",
	"__indexes__",
	"__feeds__",
	"__meta__",
}

// DefaultConfig returns the default configuration, mirroring the teacher's
// DefaultConfig shape and defaults-by-concern layout.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:     "127.0.0.1:6969",
			AcceptBacklog:  128,
			WorkerPoolSize: 64,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:                 "./data",
			WriteBufferSizeBytes:    64 * 1024 * 1024,
			WriteBufferCount:        3,
			MaxBackgroundJobs:       4,
			Level0CompactionTrigger: 4,
			BlockCacheSizeBytes:     32 * 1024 * 1024,
			MaxOpenFiles:            1024,
			DirectIO:                false,
			WALSyncBytes:            4 * 1024 * 1024,
			TargetFileSizeBaseBytes: 16 * 1024 * 1024,
			MaxBytesPerLevelBase:    256 * 1024 * 1024,
			Parallelism:             4,
			OperationSemaphore:      1000,
			PartitionCacheSize:      1024,
		},
		Query: QueryConfig{
			DefaultTimeout:     DefaultTimeout,
			DefaultBatchSize:   DefaultBatchSize,
			MaxBatchSize:       10000,
			OptimizerMaxPasses: 8,
		},
		Logging: LoggingConfig{
			Level:             "info",
			Format:            "json",
			EnablePlanLogging: true,
		},
		Export: ExportConfig{
			Enabled:        false,
			Interval:       10 * time.Minute,
			TempDir:        "./data/export-tmp",
			DuckDBMemoryMB: 512,
			DuckDBThreads:  2,
		},
	}
}

// Validate checks internal configuration invariants, mirroring the
// teacher's Config.Validate shape.
func (c *Config) Validate() error {
	if c.Storage.OperationSemaphore <= 0 {
		return &ConfigError{Field: "storage.operationSemaphore", Message: "must be greater than 0"}
	}
	if c.Storage.PartitionCacheSize <= 0 {
		return &ConfigError{Field: "storage.partitionCacheSize", Message: "must be greater than 0"}
	}
	if c.Query.DefaultBatchSize == 0 {
		return &ConfigError{Field: "query.defaultBatchSize", Message: "must be greater than 0"}
	}
	if c.Query.MaxBatchSize < c.Query.DefaultBatchSize {
		return &ConfigError{Field: "query.maxBatchSize", Message: "must be greater than or equal to defaultBatchSize"}
	}
	if c.Query.OptimizerMaxPasses <= 0 {
		return &ConfigError{Field: "query.optimizerMaxPasses", Message: "must be greater than 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}

// IsReservedDatabase reports whether name is a reserved system namespace.
func IsReservedDatabase(name string) bool {
	return len(name) >= len(SystemDatabasePrefix) && name[:len(SystemDatabasePrefix)] == SystemDatabasePrefix
}

// IsReservedTable reports whether name is a reserved system table.
func IsReservedTable(name string) bool {
	for _, t := range ReservedSystemTables {
		if t == name {
			return true
		}
	}
	return false
}
