package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain and work without any config file.
const (
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultBasePath          = "" // saved connection, else /obsidian
	defaultBackend           = BackendFile
	defaultTimeout           = "30s"
	defaultParallelDownloads = 4
	defaultMaxFileSize       = "0"
)

// defaultHiddenFiles are OS-generated sentinel files.
func defaultHiddenFiles() []string {
	return []string{".DS_Store", "Thumbs.db", "desktop.ini"}
}

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
		Session: SessionConfig{
			BasePath:    defaultBasePath,
			HiddenFiles: defaultHiddenFiles(),
		},
		Credentials: CredentialsConfig{
			Backend: defaultBackend,
		},
		Network: NetworkConfig{
			Timeout: defaultTimeout,
		},
		Transfers: TransfersConfig{
			ParallelDownloads: defaultParallelDownloads,
			MaxFileSize:       defaultMaxFileSize,
		},
	}
}
