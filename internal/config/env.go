package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig      = "DAVNOTES_CONFIG"
	EnvBasePath    = "DAVNOTES_BASE_PATH"
	EnvCredentials = "DAVNOTES_CREDENTIALS"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath      string // DAVNOTES_CONFIG: override config file path
	BasePath        string // DAVNOTES_BASE_PATH: remote subtree
	CredentialsPath string // DAVNOTES_CREDENTIALS: credential store location
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:      os.Getenv(EnvConfig),
		BasePath:        os.Getenv(EnvBasePath),
		CredentialsPath: os.Getenv(EnvCredentials),
	}
}
