package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ".diagramchat", settingsFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSettingsPathHelpers(t *testing.T) {
	require.Equal(t, "", ProjectSettingsPath(""))
	require.Contains(t, ProjectSettingsPath("/work/proj"), filepath.Join(".diagramchat", "settings.json"))

	if runtime.GOOS != "windows" {
		require.NotEmpty(t, UserSettingsPath())
	}
}

func TestLoadFileMergesEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, `{"api_key":"file-key","model":"gpt-4o-mini","temperature":0.4}`)

	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvMaxRounds, "5")

	s, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "env-key", s.APIKey, "environment must win over the file")
	require.Equal(t, "gpt-4o-mini", s.Model)
	require.Equal(t, 5, s.MaxToolRounds)
	require.InDelta(t, 0.4, s.Temperature, 1e-9)
}

func TestLoadLayerPrecedence(t *testing.T) {
	projectDir := t.TempDir()
	writeSettings(t, projectDir, `{"api_key":"project-key","docs_server":"stdio://docs"}`)

	// No user-level file in the test environment is assumed; the project
	// layer and env are enough to exercise precedence.
	t.Setenv(EnvDocsServer, "https://docs.example.com/mcp")

	s, err := Load(projectDir)
	require.NoError(t, err)
	require.Equal(t, "project-key", s.APIKey)
	require.Equal(t, "https://docs.example.com/mcp", s.DocsServer)
}

func TestLoadFileMissingIsNotError(t *testing.T) {
	for _, env := range []string{EnvAPIKey, EnvBaseURL, EnvModel, EnvDeployment, EnvAPIVersion, EnvDocsServer, EnvDocsTool, EnvMaxRounds} {
		t.Setenv(env, "")
	}
	s, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	require.Equal(t, &Settings{}, s)
}

func TestLoadFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, `{"api_key":`)
	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{name: "missing key", s: Settings{Model: "m"}, wantErr: true},
		{name: "missing model and deployment", s: Settings{APIKey: "k"}, wantErr: true},
		{name: "model only", s: Settings{APIKey: "k", Model: "m"}},
		{name: "deployment only", s: Settings{APIKey: "k", Deployment: "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
