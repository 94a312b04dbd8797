// Package config loads diagramchat settings from layered JSON files with
// environment overrides. Later layers win: user settings, then project
// settings, then the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	json "github.com/goccy/go-json"
)

// Settings is the persisted configuration surface of the CLI and of hosts
// embedding the engine.
type Settings struct {
	// APIKey authenticates against the response service.
	APIKey string `json:"api_key,omitempty"`
	// BaseURL overrides the service endpoint. Empty selects the public API.
	BaseURL string `json:"base_url,omitempty"`
	// Model names the model to invoke.
	Model string `json:"model,omitempty"`
	// Deployment switches the client into deployment-scoped routing.
	Deployment string `json:"deployment,omitempty"`
	// APIVersion is the query parameter sent with deployment-scoped routing.
	APIVersion string `json:"api_version,omitempty"`
	// DocsServer is the MCP transport spec of the documentation server,
	// e.g. "stdio://docs-server" or "https://docs.example.com/mcp".
	DocsServer string `json:"docs_server,omitempty"`
	// DocsTool overrides the documentation tool name on the MCP server.
	DocsTool string `json:"docs_tool,omitempty"`
	// MaxToolRounds caps tool continuations per exchange.
	MaxToolRounds int `json:"max_tool_rounds,omitempty"`
	// Temperature is passed through on every request.
	Temperature float64 `json:"temperature,omitempty"`
}

const settingsFileName = "settings.json"

// Environment variable names recognized by Load.
const (
	EnvAPIKey     = "DIAGRAMCHAT_API_KEY"
	EnvBaseURL    = "DIAGRAMCHAT_BASE_URL"
	EnvModel      = "DIAGRAMCHAT_MODEL"
	EnvDeployment = "DIAGRAMCHAT_DEPLOYMENT"
	EnvAPIVersion = "DIAGRAMCHAT_API_VERSION"
	EnvDocsServer = "DIAGRAMCHAT_DOCS_SERVER"
	EnvDocsTool   = "DIAGRAMCHAT_DOCS_TOOL"
	EnvMaxRounds  = "DIAGRAMCHAT_MAX_TOOL_ROUNDS"
)

// UserSettingsPath returns the per-user settings file location, empty when
// the home directory cannot be resolved.
func UserSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".diagramchat", settingsFileName)
}

// ProjectSettingsPath returns the project-scoped settings file under dir,
// empty when dir is empty.
func ProjectSettingsPath(dir string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, ".diagramchat", settingsFileName)
}

// Load merges user settings, project settings under projectDir, and the
// environment, in that order of increasing precedence. Missing files are
// skipped; malformed files fail the load.
func Load(projectDir string) (*Settings, error) {
	s := &Settings{}
	for _, path := range []string{UserSettingsPath(), ProjectSettingsPath(projectDir)} {
		if path == "" {
			continue
		}
		if err := s.mergeFile(path); err != nil {
			return nil, err
		}
	}
	s.mergeEnv()
	return s, nil
}

// LoadFile reads a single settings file, applying environment overrides on
// top.
func LoadFile(path string) (*Settings, error) {
	s := &Settings{}
	if err := s.mergeFile(path); err != nil {
		return nil, err
	}
	s.mergeEnv()
	return s, nil
}

func (s *Settings) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var layer Settings
	if err := json.Unmarshal(data, &layer); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	s.merge(&layer)
	return nil
}

func (s *Settings) merge(layer *Settings) {
	if layer.APIKey != "" {
		s.APIKey = layer.APIKey
	}
	if layer.BaseURL != "" {
		s.BaseURL = layer.BaseURL
	}
	if layer.Model != "" {
		s.Model = layer.Model
	}
	if layer.Deployment != "" {
		s.Deployment = layer.Deployment
	}
	if layer.APIVersion != "" {
		s.APIVersion = layer.APIVersion
	}
	if layer.DocsServer != "" {
		s.DocsServer = layer.DocsServer
	}
	if layer.DocsTool != "" {
		s.DocsTool = layer.DocsTool
	}
	if layer.MaxToolRounds > 0 {
		s.MaxToolRounds = layer.MaxToolRounds
	}
	if layer.Temperature != 0 {
		s.Temperature = layer.Temperature
	}
}

func (s *Settings) mergeEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		s.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		s.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		s.Model = v
	}
	if v := os.Getenv(EnvDeployment); v != "" {
		s.Deployment = v
	}
	if v := os.Getenv(EnvAPIVersion); v != "" {
		s.APIVersion = v
	}
	if v := os.Getenv(EnvDocsServer); v != "" {
		s.DocsServer = v
	}
	if v := os.Getenv(EnvDocsTool); v != "" {
		s.DocsTool = v
	}
	if v := os.Getenv(EnvMaxRounds); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.MaxToolRounds = n
		}
	}
}

// Validate checks that the settings can drive an exchange.
func (s *Settings) Validate() error {
	if s.APIKey == "" {
		return fmt.Errorf("config: api key is required (set %s or a settings file)", EnvAPIKey)
	}
	if s.Model == "" && s.Deployment == "" {
		return fmt.Errorf("config: model or deployment is required")
	}
	return nil
}
