package Config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingSecret is returned when SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY
// cannot be resolved from the environment or backend/.env.
var ErrMissingSecret = errors.New("missing SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY")

// Provisioning configures the CEO provisioning tools.
type Provisioning struct {
	SupabaseURL    string
	ServiceRoleKey string

	CEOEmail    string
	CEOName     string
	CEOPassword string
	CEORole     string

	// EnvFile is the settings file consulted when the secrets are not set.
	EnvFile string
}

// LoadProvisioning resolves the provisioning secrets. When either secret is
// unset it loads <repoRoot>/backend/.env without overriding variables that
// are already present.
func LoadProvisioning(repoRoot string) (Provisioning, error) {
	envFile := filepath.Join(repoRoot, "backend", ".env")
	if os.Getenv("SUPABASE_URL") == "" || os.Getenv("SUPABASE_SERVICE_ROLE_KEY") == "" {
		if _, err := os.Stat(envFile); err == nil {
			// godotenv.Load never overrides variables already set
			_ = godotenv.Load(envFile)
		}
	}

	src := source{}
	p := Provisioning{
		SupabaseURL:    strings.TrimRight(src.get("SUPABASE_URL", ""), "/"),
		ServiceRoleKey: src.get("SUPABASE_SERVICE_ROLE_KEY", ""),
		CEOEmail:       src.get("CEO_EMAIL", DefaultPrivilegedEmail),
		CEOName:        src.get("CEO_NAME", "Junaid"),
		CEOPassword:    src.get("CEO_PASSWORD", "admin123"),
		CEORole:        src.get("CEO_ROLE", "CEO"),
		EnvFile:        envFile,
	}
	if p.SupabaseURL == "" || p.ServiceRoleKey == "" {
		return p, ErrMissingSecret
	}
	return p, nil
}
