package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppName names the per-user state and config directories.
const AppName = "mirofish-console"

// EnvVars is the console configuration read from CONSOLE_* variables.
type EnvVars struct {
	AppEnv string `envconfig:"ENV" default:"dev"`

	APIBaseURL  string        `envconfig:"API_BASE_URL" default:"http://localhost:5001"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`

	RetryAttempts int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"RETRY_DELAY" default:"1s"`

	// Empty means the XDG default locations.
	SessionFile  string `envconfig:"SESSION_FILE"`
	ProfilesFile string `envconfig:"PROFILES_FILE"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// MockEnv configures the mock backend.
type MockEnv struct {
	Addr string `envconfig:"ADDR" default:":5001"`

	// Seed credentials used when no credentials file exists yet.
	DemoUsername    string `envconfig:"DEMO_USERNAME" default:"admin"`
	DemoPassword    string `envconfig:"DEMO_PASSWORD" default:"admin123"`
	CredentialsFile string `envconfig:"CREDENTIALS_FILE"`

	// FailFirst makes the first N generate/chat requests answer 503.
	FailFirst int           `envconfig:"FAIL_FIRST" default:"0"`
	StepDelay time.Duration `envconfig:"STEP_DELAY" default:"500ms"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// loadDotEnv loads ./.env and then the extra files. Variables already set
// win, so earlier files take precedence over later ones. Missing files are
// ignored.
func loadDotEnv(files ...string) error {
	files = append([]string{".env"}, files...)
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// LoadEnv reads ./.env, any extra .env files, and then the CONSOLE_* variables.
func LoadEnv(dotenv ...string) (*EnvVars, error) {
	if err := loadDotEnv(dotenv...); err != nil {
		return nil, err
	}
	var v EnvVars
	if err := envconfig.Process("console", &v); err != nil {
		return nil, err
	}
	if v.SessionFile == "" {
		v.SessionFile = DefaultSessionFile()
	}
	if v.ProfilesFile == "" {
		v.ProfilesFile = DefaultProfilesFile()
	}
	if v.RetryAttempts < 1 {
		v.RetryAttempts = 1
	}
	return &v, nil
}

// LoadMockEnv reads ./.env, any extra .env files, and then the MOCK_* variables.
func LoadMockEnv(dotenv ...string) (*MockEnv, error) {
	if err := loadDotEnv(dotenv...); err != nil {
		return nil, err
	}
	var v MockEnv
	if err := envconfig.Process("mock", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DefaultSessionFile is $XDG_STATE_HOME/mirofish-console/session.json.
func DefaultSessionFile() string {
	return filepath.Join(xdg.StateHome, AppName, "session.json")
}

// DefaultProfilesFile is $XDG_CONFIG_HOME/mirofish-console/profiles.yaml.
func DefaultProfilesFile() string {
	return filepath.Join(xdg.ConfigHome, AppName, "profiles.yaml")
}
