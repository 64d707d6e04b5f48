package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "TASKGATE_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "modules", "tasks")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(sub))

	_ = os.Unsetenv("TASKGATE_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("TASKGATE_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("TASKGATE_TEST_ENV_LOAD"))
}

func TestValidateAuthz(t *testing.T) {
	c := &Configuration{GoAppEnvironment: "development"}
	c.Authz.Mode = " Shadow "
	require.NoError(t, c.validateAuthz())
	require.Equal(t, "shadow", c.Authz.Mode)

	c.Authz.Mode = ""
	require.NoError(t, c.validateAuthz())
	require.Equal(t, "enforce", c.Authz.Mode)

	c.Authz.Mode = "audit"
	require.Error(t, c.validateAuthz())

	prod := &Configuration{GoAppEnvironment: Production}
	prod.Authz.Mode = "disabled"
	require.Error(t, prod.validateAuthz())
}

func TestValidateStorage(t *testing.T) {
	c := &Configuration{StorageDriver: "MEMORY", GoAppEnvironment: "development"}
	require.NoError(t, c.validateStorage())
	require.Equal(t, StorageDriverMemory, c.StorageDriver)

	c.StorageDriver = "sqlite"
	require.Error(t, c.validateStorage())

	prod := &Configuration{StorageDriver: "memory", GoAppEnvironment: Production}
	require.Error(t, prod.validateStorage())
}

func TestRateLimitOptions_Validate(t *testing.T) {
	r := RateLimitOptions{GlobalRPS: 10, Storage: "memory"}
	require.NoError(t, r.Validate())

	r.Storage = "redis"
	require.Error(t, r.Validate())
	r.RedisURL = "localhost:6379"
	require.NoError(t, r.Validate())

	r.Storage = "etcd"
	require.Error(t, r.Validate())

	r = RateLimitOptions{GlobalRPS: -1, Storage: "memory"}
	require.Error(t, r.Validate())
}

func TestAllowedOrigins(t *testing.T) {
	c := &Configuration{CorsAllowedOrigins: "http://a.test, http://b.test\n"}
	require.Equal(t, []string{"http://a.test", "http://b.test"}, c.AllowedOrigins())
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
