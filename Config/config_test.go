package Config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PRIVILEGED_EMAILS", "")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "CEO", cfg.PrivilegedRole)
	assert.Equal(t, []string{DefaultPrivilegedEmail}, cfg.PrivilegedEmails)
	assert.True(t, cfg.PrivilegedRequireEmail)
	assert.Equal(t, 300*time.Second, cfg.KeepAliveInterval)
	assert.Contains(t, cfg.CORSOrigins, "https://max.amzdudes.io")
	assert.False(t, cfg.SMTP.Enabled())
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadSettingsFileUnderEnvironment(t *testing.T) {
	dir := t.TempDir()
	settings := `{
		// comments are allowed
		PORT: "4000",
		PRIVILEGED_EMAILS: ["boss@example.com", "deputy@example.com"],
		KEEP_ALIVE_INTERVAL: 60,
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte(settings), 0o644))

	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "5000")
	t.Setenv("PRIVILEGED_EMAILS", "")
	t.Setenv("KEEP_ALIVE_INTERVAL", "")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port, "environment wins over the settings file")
	assert.Equal(t, []string{"boss@example.com", "deputy@example.com"}, cfg.PrivilegedEmails)
	assert.Equal(t, 60*time.Second, cfg.KeepAliveInterval)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "oracle")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadProvisioningFromBackendEnv(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "backend"), 0o755))
	env := "SUPABASE_URL=https://demo.supabase.co/\nSUPABASE_SERVICE_ROLE_KEY=\"service-key\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "backend", ".env"), []byte(env), 0o644))

	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")
	os.Unsetenv("SUPABASE_URL")
	os.Unsetenv("SUPABASE_SERVICE_ROLE_KEY")

	p, err := LoadProvisioning(root)
	require.NoError(t, err)
	assert.Equal(t, "https://demo.supabase.co", p.SupabaseURL)
	assert.Equal(t, "service-key", p.ServiceRoleKey)
	assert.Equal(t, DefaultPrivilegedEmail, p.CEOEmail)
	assert.Equal(t, "CEO", p.CEORole)
}

func TestLoadProvisioningMissingSecret(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")
	os.Unsetenv("SUPABASE_URL")
	os.Unsetenv("SUPABASE_SERVICE_ROLE_KEY")

	_, err := LoadProvisioning(t.TempDir())
	assert.ErrorIs(t, err, ErrMissingSecret)
}
