package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvConfigPath overrides the settings file location.
	EnvConfigPath = "BINGETRACKER_CONFIG"
	// EnvTMDBAPIKey fills the catalog key when the settings file has none.
	EnvTMDBAPIKey = "TMDB_API_KEY"

	DefaultConfigPath = "cache/settings.json"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server      ServerSettings      `json:"server"`
	Catalog     CatalogSettings     `json:"catalog"`
	Database    DatabaseSettings    `json:"database"`
	Storage     StorageSettings     `json:"storage"`
	Auth        AuthSettings        `json:"auth"`
	Binges      BingeSettings       `json:"binges"`
	Maintenance MaintenanceSettings `json:"maintenance"`
	Log         LogConfig           `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// AllowedOrigins are trusted in addition to local-network origins.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
	// TrustedProxies may report the client address via X-Forwarded-For.
	// Addresses or CIDR ranges; empty means requests are keyed on their peer.
	TrustedProxies []string `json:"trustedProxies,omitempty"`
}

type CatalogSettings struct {
	TMDBAPIKey     string `json:"tmdbApiKey"`
	BaseURL        string `json:"baseUrl"`
	Language       string `json:"language"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	MaxAttempts    int    `json:"maxAttempts"`
}

type DatabaseSettings struct {
	Driver string `json:"driver"` // sqlite | postgres
	Path   string `json:"path"`   // sqlite file
	DSN    string `json:"dsn"`    // postgres connection string
}

// StorageSettings points at the directory holding the accounts and sessions files.
type StorageSettings struct {
	Directory string `json:"directory"`
}

type AuthSettings struct {
	SessionHours    int     `json:"sessionHours"`
	RateLimitPerMin float64 `json:"rateLimitPerMinute"`
	RateLimitBurst  int     `json:"rateLimitBurst"`
	OIDCIssuerURL   string  `json:"oidcIssuerUrl"`
	OIDCClientID    string  `json:"oidcClientId"`
}

type BingeSettings struct {
	// CollationLocale enables locale-aware alphabetical sorting, e.g. "en".
	CollationLocale string `json:"collationLocale"`
}

// MaintenanceSettings drives the housekeeping scheduler.
type MaintenanceSettings struct {
	CheckIntervalSeconds  int `json:"checkIntervalSeconds"`
	SessionCleanupMinutes int `json:"sessionCleanupMinutes"`
	RateLimitEvictMinutes int `json:"rateLimitEvictMinutes"`
}

// LogConfig controls the rotating log file. An empty File logs to stdout only.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"` // megabytes
	MaxBackups int    `json:"maxBackups"`
	MaxAge     int    `json:"maxAge"` // days
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 7777},
		Catalog: CatalogSettings{
			BaseURL:        "https://api.themoviedb.org/3",
			Language:       "en-US",
			TimeoutSeconds: 15,
			MaxAttempts:    3,
		},
		Database: DatabaseSettings{Driver: "sqlite", Path: "cache/bingetracker.db"},
		Storage:  StorageSettings{Directory: "cache"},
		Auth:     AuthSettings{SessionHours: 24 * 30, RateLimitPerMin: 10, RateLimitBurst: 5},
		Maintenance: MaintenanceSettings{
			CheckIntervalSeconds:  60,
			SessionCleanupMinutes: 60,
			RateLimitEvictMinutes: 5,
		},
		Log: LogConfig{
			File:       "cache/logs/backend.log",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// PathFromEnv returns the settings path from the environment or the default.
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// Path returns the settings file location.
func (m *Manager) Path() string { return m.path }

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
// Fields absent from the file keep their default values.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return withEnv(defaults), nil
	}

	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	s := DefaultSettings()
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}
	normalize(&s)
	return withEnv(s), nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}

func normalize(s *Settings) {
	defaults := DefaultSettings()
	s.Database.Driver = strings.ToLower(strings.TrimSpace(s.Database.Driver))
	if s.Database.Driver == "" {
		s.Database.Driver = defaults.Database.Driver
	}
	if s.Catalog.BaseURL == "" {
		s.Catalog.BaseURL = defaults.Catalog.BaseURL
	}
	if s.Catalog.TimeoutSeconds <= 0 {
		s.Catalog.TimeoutSeconds = defaults.Catalog.TimeoutSeconds
	}
	if s.Catalog.MaxAttempts <= 0 {
		s.Catalog.MaxAttempts = defaults.Catalog.MaxAttempts
	}
	if s.Auth.SessionHours <= 0 {
		s.Auth.SessionHours = defaults.Auth.SessionHours
	}
	if s.Maintenance.CheckIntervalSeconds <= 0 {
		s.Maintenance.CheckIntervalSeconds = defaults.Maintenance.CheckIntervalSeconds
	}
	if s.Maintenance.SessionCleanupMinutes <= 0 {
		s.Maintenance.SessionCleanupMinutes = defaults.Maintenance.SessionCleanupMinutes
	}
	if s.Maintenance.RateLimitEvictMinutes <= 0 {
		s.Maintenance.RateLimitEvictMinutes = defaults.Maintenance.RateLimitEvictMinutes
	}
	if strings.TrimSpace(s.Storage.Directory) == "" {
		s.Storage.Directory = defaults.Storage.Directory
	}
}

// withEnv applies environment fallbacks. They are never written back to disk.
func withEnv(s Settings) Settings {
	if strings.TrimSpace(s.Catalog.TMDBAPIKey) == "" {
		s.Catalog.TMDBAPIKey = strings.TrimSpace(os.Getenv(EnvTMDBAPIKey))
	}
	return s
}
