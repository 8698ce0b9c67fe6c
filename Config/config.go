package Config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// SettingsFile is the optional JSON5 settings file read from the working
// directory. Environment variables always take precedence over it.
const SettingsFile = "clientmax.json5"

// DefaultPrivilegedEmail is the operator address granted elevated access
// when PRIVILEGED_EMAILS is not configured.
const DefaultPrivilegedEmail = "junaid@amzdudes.com"

// Config holds the server configuration
type Config struct {
	Port string

	DBDriver string
	DBDSN    string

	JWTSecret string

	PrivilegedRole         string
	PrivilegedEmails       []string
	PrivilegedRequireEmail bool

	CORSOrigins []string

	KeepAliveEnabled  bool
	KeepAliveInterval time.Duration
	ServiceURL        string

	SlackBotToken  string
	SlackChannelID string
	DigestSchedule string

	SMTP SMTPConfig

	RequestLogFile string
	ErrorLogFile   string
}

// SMTPConfig configures assignment emails. Host empty disables email.
type SMTPConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	FromEmail    string
	FromName     string
	TLSEnabled   bool
	SkipTLSCheck bool
}

// Enabled reports whether an SMTP host was configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

// source resolves keys from the environment first, then the settings file.
type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := s.file[key]; ok && v != "" {
		return v
	}
	return def
}

func (s source) bool(key string, def bool) bool {
	raw := s.get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Config: invalid boolean for %s: %q, using %v", key, raw, def)
		return def
	}
	return v
}

func (s source) int(key string, def int) int {
	raw := s.get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Config: invalid integer for %s: %q, using %d", key, raw, def)
		return def
	}
	return v
}

func (s source) list(key string, def []string) []string {
	raw := s.get(key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads .env (if present) and the optional settings file in dir, then
// resolves the server configuration.
func Load(dir string) (*Config, error) {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("error loading %s: %w", envPath, err)
		}
	}

	file, err := readSettings(filepath.Join(dir, SettingsFile))
	if err != nil {
		return nil, err
	}
	src := source{file: file}

	cfg := &Config{
		Port:                   src.get("PORT", "3001"),
		DBDriver:               strings.ToLower(src.get("DB_DRIVER", "sqlite")),
		DBDSN:                  src.get("DB_DSN", "database.db"),
		JWTSecret:              src.get("JWT_SECRET", ""),
		PrivilegedRole:         src.get("PRIVILEGED_ROLE", "CEO"),
		PrivilegedEmails:       src.list("PRIVILEGED_EMAILS", []string{DefaultPrivilegedEmail}),
		PrivilegedRequireEmail: src.bool("PRIVILEGED_REQUIRE_EMAIL", true),
		CORSOrigins: src.list("CORS_ORIGINS", []string{
			"http://localhost:8080",
			"http://localhost:5173",
			"https://max.amzdudes.io",
		}),
		KeepAliveEnabled:  src.bool("KEEP_ALIVE_ENABLED", true),
		KeepAliveInterval: time.Duration(src.int("KEEP_ALIVE_INTERVAL", 300)) * time.Second,
		ServiceURL:        strings.TrimRight(src.get("RENDER_SERVICE_URL", src.get("SERVICE_URL", "")), "/"),
		SlackBotToken:     src.get("SLACK_BOT_TOKEN", ""),
		SlackChannelID:    src.get("SLACK_CHANNEL_ID", ""),
		DigestSchedule:    src.get("DIGEST_SCHEDULE", "0 0 9 * * *"),
		SMTP: SMTPConfig{
			Host:         src.get("SMTP_HOST", ""),
			Port:         src.int("SMTP_PORT", 587),
			Username:     src.get("SMTP_USERNAME", ""),
			Password:     src.get("SMTP_PASSWORD", ""),
			FromEmail:    src.get("SMTP_FROM_EMAIL", ""),
			FromName:     src.get("SMTP_FROM_NAME", "ClientMax"),
			TLSEnabled:   src.bool("SMTP_TLS", false),
			SkipTLSCheck: src.bool("SMTP_SKIP_TLS_CHECK", false),
		},
		RequestLogFile: src.get("LOG_FILE", "logs/requests.log"),
		ErrorLogFile:   src.get("ERROR_LOG_FILE", "logs/errors.log"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = 300 * time.Second
	}
	switch cfg.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	return cfg, nil
}

// readSettings parses the JSON5 settings file into flat string values.
// A missing file is not an error.
func readSettings(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}

	out := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
		case string:
			out[key] = v
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	return out, nil
}
