package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// EnvPrefix prefixes every environment variable read by the application.
const EnvPrefix = "ADVENT"

// Store drivers accepted by StoreDriver.
const (
	DriverFile      = "file"
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
)

// Config holds all configuration settings for the application.
// Environment variables use the ADVENT_ prefix, e.g. ADVENT_LISTEN_PORT.
type Config struct {
	// Server settings
	ListenAddress string `envconfig:"LISTEN_ADDRESS" default:"0.0.0.0"`
	ListenPort    string `envconfig:"LISTEN_PORT" default:"8080"`

	// Document store settings
	StoreDriver  string        `envconfig:"STORE_DRIVER" default:"file"`
	DbFilePath   string        `envconfig:"DB_FILE_PATH" default:"./advent.json"`
	SaveInterval time.Duration `envconfig:"SAVE_INTERVAL" default:"3s"`
	EnableBackup bool          `envconfig:"ENABLE_BACKUP" default:"true"`
	SQLitePath   string        `envconfig:"SQLITE_PATH" default:"./advent.db"`
	PostgresDSN  string        `envconfig:"POSTGRES_DSN"`

	FirestoreProjectID       string `envconfig:"FIRESTORE_PROJECT_ID"`
	FirestoreCredentialsFile string `envconfig:"FIRESTORE_CREDENTIALS_FILE"`

	// Authentication settings
	JwtSecret     string        `envconfig:"JWT_SECRET"`
	JwtSecretFile string        `envconfig:"JWT_SECRET_FILE"`
	JwtKeyFile    string        `envconfig:"JWT_KEY_FILE" default:"./advent.key"`
	TokenLifetime time.Duration `envconfig:"TOKEN_LIFETIME" default:"1h"`
	BcryptCost    int           `envconfig:"BCRYPT_COST" default:"12"`

	// Client settings
	ServerURL      string `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	FirebaseAPIKey string `envconfig:"FIREBASE_API_KEY"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	secretSource string
}

// Load reads .env (if present) and the environment without resolving the JWT secret.
// Callers that override fields (CLI flags) call Resolve afterwards.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	return &cfg, nil
}

// Resolve obtains the JWT secret, validates the settings and logs the outcome.
func (cfg *Config) Resolve() error {
	if err := cfg.resolveJwtSecret(); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	logConfiguration(cfg)
	return nil
}

// resolveJwtSecret follows the priority: secret file > ADVENT_JWT_SECRET > default key file > generate.
func (cfg *Config) resolveJwtSecret() error {
	explicit := strings.TrimSpace(cfg.JwtSecret)
	cfg.JwtSecret = ""

	// 1. Explicit file path
	if cfg.JwtSecretFile != "" {
		secretBytes, err := os.ReadFile(cfg.JwtSecretFile)
		if err == nil {
			cfg.JwtSecret = strings.TrimSpace(string(secretBytes))
			if cfg.JwtSecret != "" {
				cfg.secretSource = fmt.Sprintf("File (%s)", cfg.JwtSecretFile)
			} else {
				log.Warn().Str("file", cfg.JwtSecretFile).Msg("JWT secret file is empty, ignoring")
			}
		} else {
			log.Warn().Err(err).Str("file", cfg.JwtSecretFile).Msg("failed to read JWT secret file, checking other sources")
		}
	}

	// 2. Environment variable
	if cfg.JwtSecret == "" && explicit != "" {
		cfg.JwtSecret = explicit
		cfg.secretSource = "Environment Variable (ADVENT_JWT_SECRET)"
	}

	// 3. Default key file
	if cfg.JwtSecret == "" && cfg.JwtKeyFile != "" {
		secretBytes, err := os.ReadFile(cfg.JwtKeyFile)
		if err == nil {
			cfg.JwtSecret = strings.TrimSpace(string(secretBytes))
			if cfg.JwtSecret != "" {
				cfg.secretSource = fmt.Sprintf("Default Key File (%s)", cfg.JwtKeyFile)
			} else {
				log.Warn().Str("file", cfg.JwtKeyFile).Msg("default JWT key file is empty, generating a new secret")
			}
		} else if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", cfg.JwtKeyFile).Msg("failed to read default JWT key file, generating a new secret")
		}
	}

	// 4. Generate and try to save
	if cfg.JwtSecret == "" {
		newSecret, err := generateRandomKey(32)
		if err != nil {
			return fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.JwtSecret = newSecret
		cfg.secretSource = "Generated (In Memory)"

		if cfg.JwtKeyFile != "" {
			if err := os.WriteFile(cfg.JwtKeyFile, []byte(newSecret), 0600); err != nil {
				log.Warn().Err(err).Str("file", cfg.JwtKeyFile).Msg("failed to save generated JWT secret, using it for this session only")
			} else {
				cfg.secretSource = fmt.Sprintf("Generated & Saved (%s)", cfg.JwtKeyFile)
			}
		}
	}

	return nil
}

func (cfg *Config) validate() error {
	switch cfg.StoreDriver {
	case DriverFile:
		absDbPath, err := filepath.Abs(cfg.DbFilePath)
		if err != nil {
			return fmt.Errorf("could not determine absolute path for db file '%s': %w", cfg.DbFilePath, err)
		}
		cfg.DbFilePath = absDbPath
		if fileInfo, err := os.Stat(cfg.DbFilePath); err == nil && fileInfo.IsDir() {
			return fmt.Errorf("database path '%s' points to a directory, not a file", cfg.DbFilePath)
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return fmt.Errorf("sqlite driver requires ADVENT_SQLITE_PATH")
		}
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("postgres driver requires ADVENT_POSTGRES_DSN")
		}
	case DriverFirestore:
		if cfg.FirestoreProjectID == "" {
			return fmt.Errorf("firestore driver requires ADVENT_FIRESTORE_PROJECT_ID")
		}
	default:
		return fmt.Errorf("unsupported store driver: %q", cfg.StoreDriver)
	}

	if cfg.SaveInterval <= 0 {
		return fmt.Errorf("save interval must be positive, got %s", cfg.SaveInterval)
	}
	if cfg.TokenLifetime <= 0 {
		return fmt.Errorf("token lifetime must be positive, got %s", cfg.TokenLifetime)
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31, got %d", cfg.BcryptCost)
	}
	return nil
}

// SecretSource describes where the JWT secret came from. Empty before Resolve.
func (cfg *Config) SecretSource() string {
	return cfg.secretSource
}

// logConfiguration prints the loaded configuration settings.
func logConfiguration(cfg *Config) {
	log.Info().
		Str("address", cfg.ListenAddress).
		Str("port", cfg.ListenPort).
		Str("store_driver", cfg.StoreDriver).
		Str("db_file", cfg.DbFilePath).
		Dur("save_interval", cfg.SaveInterval).
		Bool("backup", cfg.EnableBackup).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Str("firestore_project", cfg.FirestoreProjectID).
		Str("jwt_secret_source", cfg.secretSource).
		Dur("token_lifetime", cfg.TokenLifetime).
		Int("bcrypt_cost", cfg.BcryptCost).
		Msg("configuration loaded")
}

// generateRandomKey generates a cryptographically secure random key of the specified byte length
// and returns it as a hex-encoded string.
func generateRandomKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
