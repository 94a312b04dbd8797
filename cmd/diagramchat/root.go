package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/cexll/diagramchat-go/pkg/chat"
	"github.com/cexll/diagramchat-go/pkg/config"
	"github.com/cexll/diagramchat-go/pkg/docs/mcpdocs"
	"github.com/cexll/diagramchat-go/pkg/middleware"
	"github.com/cexll/diagramchat-go/pkg/responses"
	"github.com/cexll/diagramchat-go/pkg/tool"
	toolbuiltin "github.com/cexll/diagramchat-go/pkg/tool/builtin"
)

var rootCmd = &cobra.Command{
	Use:          "diagramchat",
	Short:        "Chat with a model that answers in text and diagrams",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var flags struct {
	configFile string
	model      string
	baseURL    string
	deployment string
	apiVersion string
	docsServer string
	maxRounds  int
	trace      bool
	verbose    bool
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "settings file (default: layered .diagramchat/settings.json)")
	pf.StringVar(&flags.model, "model", "", "model to invoke")
	pf.StringVar(&flags.baseURL, "base-url", "", "service base URL")
	pf.StringVar(&flags.deployment, "deployment", "", "deployment name for deployment-scoped routing")
	pf.StringVar(&flags.apiVersion, "api-version", "", "api version for deployment-scoped routing")
	pf.StringVar(&flags.docsServer, "docs-server", "", "MCP docs server spec, e.g. stdio://docs-server")
	pf.IntVar(&flags.maxRounds, "max-tool-rounds", 0, "tool continuation budget per exchange")
	pf.BoolVar(&flags.trace, "trace", false, "emit a client span per service request")
	pf.BoolVar(&flags.verbose, "verbose", false, "log engine diagnostics to stderr")
}

func loadSettings() (*config.Settings, error) {
	if flags.configFile != "" {
		return config.LoadFile(flags.configFile)
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = ""
	}
	return config.Load(wd)
}

// buildEngine assembles the chat engine from settings plus flag overrides.
func buildEngine() (*chat.Engine, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if flags.model != "" {
		settings.Model = flags.model
	}
	if flags.baseURL != "" {
		settings.BaseURL = flags.baseURL
	}
	if flags.deployment != "" {
		settings.Deployment = flags.deployment
	}
	if flags.apiVersion != "" {
		settings.APIVersion = flags.apiVersion
	}
	if flags.docsServer != "" {
		settings.DocsServer = flags.docsServer
	}
	if flags.maxRounds > 0 {
		settings.MaxToolRounds = flags.maxRounds
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{}
	if flags.trace {
		httpClient.Transport = middleware.NewTracingTransport(nil, nil)
	}
	client, err := responses.NewClient(responses.Config{
		BaseURL:    settings.BaseURL,
		APIKey:     settings.APIKey,
		Deployment: settings.Deployment,
		APIVersion: settings.APIVersion,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}

	var registry *tool.Registry
	if settings.DocsServer != "" {
		registry = tool.NewRegistry()
		provider := mcpdocs.New(settings.DocsServer, settings.DocsTool)
		if err := registry.Register(toolbuiltin.NewDocsTool(provider)); err != nil {
			return nil, fmt.Errorf("register docs tool: %w", err)
		}
	}

	var logger *slog.Logger
	if flags.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	model := settings.Model
	if model == "" {
		model = settings.Deployment
	}
	return chat.New(chat.Config{
		Client:        client,
		Model:         model,
		Tools:         registry,
		MaxToolRounds: settings.MaxToolRounds,
		Temperature:   settings.Temperature,
		Logger:        logger,
	})
}
