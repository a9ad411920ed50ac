package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// resetApp clears the wired services so loadApp builds them from scratch.
func resetApp(t *testing.T) {
	t.Helper()
	appMu.Lock()
	store, app = nil, nil
	appMu.Unlock()
	t.Cleanup(func() {
		appMu.Lock()
		store, app = nil, nil
		appMu.Unlock()
	})
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "stache", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{
		"search", "ingest", "namespace", "document", "upload",
		"health", "models", "loaders", "config", "mcp", "version",
	} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestLoadApp_ReadsConfigDirAndFlags(t *testing.T) {
	resetApp(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("api_url = \"https://file.example.com\"\nworkers = 6\n\n[loader]\ntxt = \"text\"\n"), 0o600))

	_, err := execute(t, "loaders", "--config-dir", dir, "--function-name", "stache-api")
	require.NoError(t, err)

	require.NotNil(t, app)
	assert.Equal(t, "https://file.example.com", app.cfg.APIURL)
	assert.Equal(t, "stache-api", app.cfg.FunctionName)
	assert.Equal(t, 6, app.cfg.Workers)
	assert.Equal(t, "text", app.cfg.LoaderOverrides[".txt"])
	assert.NotNil(t, app.newClient)
	assert.NotNil(t, app.enrichers)
}

func TestLoadApp_InvalidFlag(t *testing.T) {
	resetApp(t)

	_, err := execute(t, "loaders", "--config-dir", t.TempDir(), "--transport", "carrier-pigeon")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, app)
}

func TestLoadApp_UnknownLoaderOverride(t *testing.T) {
	resetApp(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("[loader]\ntxt = \"nonexistent\"\n"), 0o600))

	_, err := execute(t, "loaders", "--config-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestFlagValues_OnlyChanged(t *testing.T) {
	require.NoError(t, rootCmd.PersistentFlags().Set("api-url", "https://flag.example.com"))
	defer resetFlags(rootCmd)

	values := flagValues(rootCmd)
	assert.Equal(t, map[string]string{"api_url": "https://flag.example.com"}, values)
}

func TestPrintError_IncludesHints(t *testing.T) {
	buf := new(bytes.Buffer)
	err := errors.WithHint(errors.New("no paths"), "Example: stache ingest ./docs")

	printError(buf, err)

	assert.Contains(t, buf.String(), "Error: no paths")
	assert.Contains(t, buf.String(), "Example: stache ingest ./docs")
}
