package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattmezza/ticketwatch/internal/state"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ENV_FILE", "KEYWORDS_ENV", "TELEGRAM_TOKEN", "CHAT_ID", "TICKETWATCH_CONFIG", "TICKETWATCH_LOG_LEVEL",
		"TICKETWATCH_TELEGRAM_TOKEN_TELEGRAM", "TICKETWATCH_TELEGRAM_CHAT_ID_TELEGRAM"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestRootCommandLayout(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "once")
	assert.Contains(t, names, "test-notification")

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, defaultConfigFile, flag.DefValue)
}

func TestOnceCommand(t *testing.T) {
	clearEnv(t)

	page := "<html><body><h2>Venta De Boletos</h2></body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	statePath := filepath.Join(t.TempDir(), "monitor_state.json")
	cfgPath := writeConfig(t, fmt.Sprintf(`
sites:
  - name: "Local"
    url: %q
  - name: "Down"
    url: "http://127.0.0.1:1/"
keywords: ["venta de boletos"]
http:
  timeout: "2s"
state:
  path: %q
log:
  level: "error"
notification_channels:
  - name: "console"
    type: "stdout"
`, server.URL, statePath))

	require.NoError(t, execute(t, "--config", cfgPath, "once"))

	st, err := state.NewJSONStore(statePath).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.State{"Local": true}, st, "unreachable site leaves no entry")

	page = "<html><body>Sin novedades</body></html>"
	require.NoError(t, execute(t, "--config", cfgPath, "once"))

	st, err = state.NewJSONStore(statePath).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.State{"Local": false}, st)
}

func TestOnceCommandWithSQLiteState(t *testing.T) {
	clearEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>preventa</p>"))
	}))
	defer server.Close()

	dbPath := filepath.Join(t.TempDir(), "state.db")
	cfgPath := writeConfig(t, fmt.Sprintf(`
sites:
  - name: "Local"
    url: %q
keywords: ["Preventa"]
state:
  backend: "sqlite"
  path: %q
log:
  level: "error"
notification_channels:
  - name: "console"
    type: "stdout"
`, server.URL, dbPath))

	require.NoError(t, execute(t, "--config", cfgPath, "once"))

	store, err := state.OpenSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	defer store.Close()
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.State{"Local": true}, st)
}

func TestInvalidConfig(t *testing.T) {
	clearEnv(t)
	cfgPath := writeConfig(t, `state: {backend: "redis"}`)

	err := execute(t, "--config", cfgPath, "once")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load configuration")
}

func TestTestNotification(t *testing.T) {
	clearEnv(t)
	cfgPath := writeConfig(t, `
log:
  level: "error"
state:
  path: "`+filepath.Join(t.TempDir(), "s.json")+`"
notification_channels:
  - name: "console"
    type: "stdout"
  - name: "telegram"
    type: "telegram"
`)

	t.Run("single_channel", func(t *testing.T) {
		assert.NoError(t, execute(t, "--config", cfgPath, "test-notification", "console"))
	})

	t.Run("unknown_channel", func(t *testing.T) {
		err := execute(t, "--config", cfgPath, "test-notification", "pager")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
		assert.Contains(t, err.Error(), "console, telegram")
	})

	t.Run("telegram_without_credentials", func(t *testing.T) {
		err := execute(t, "--config", cfgPath, "test-notification", "telegram")
		assert.Error(t, err)
	})

	t.Run("all_channels_one_succeeds", func(t *testing.T) {
		assert.NoError(t, execute(t, "--config", cfgPath, "test-notification"))
	})

	t.Run("too_many_args", func(t *testing.T) {
		assert.Error(t, execute(t, "--config", cfgPath, "test-notification", "a", "b"))
	})
}

func TestConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	assert.Equal(t, defaultConfigFile, configPathFromEnv(defaultConfigFile))
	assert.Equal(t, "/etc/custom.yaml", configPathFromEnv("/etc/custom.yaml"))

	t.Setenv("TICKETWATCH_CONFIG", "/srv/ticketwatch.yaml")
	assert.Equal(t, "/srv/ticketwatch.yaml", configPathFromEnv(defaultConfigFile))
	assert.Equal(t, "/etc/custom.yaml", configPathFromEnv("/etc/custom.yaml"), "an explicit flag wins")
}
