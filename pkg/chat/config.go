package chat

import (
	"errors"
	"io"
	"log/slog"

	"github.com/cexll/diagramchat-go/pkg/responses"
	"github.com/cexll/diagramchat-go/pkg/session"
	"github.com/cexll/diagramchat-go/pkg/tool"
)

const (
	defaultMaxToolRounds = 3
	defaultTemperature   = 0.2
)

// Config assembles an Engine.
type Config struct {
	// Client issues requests to the response service. Required.
	Client *responses.Client

	// Model names the model or deployment to invoke. Required.
	Model string

	// Tools holds the invocable tools declared to the service. Optional; with
	// no registry the engine never enters the dispatch loop.
	Tools *tool.Registry

	// MaxToolRounds caps the number of continuation rounds. Zero or negative
	// selects the default of 3.
	MaxToolRounds int

	// Temperature is passed through on every request. Zero selects the
	// default of 0.2.
	Temperature float64

	// SchemaFields names the structured-output fields. Zero values select
	// "text" and "diagramDefinition".
	SchemaFields responses.SchemaFields

	// Session, when set, receives the user turns and the assistant reply of
	// every exchange.
	Session session.Session

	// Logger receives diagnostic output. Nil discards it.
	Logger *slog.Logger
}

// Validate checks required fields and fills defaults in place.
func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.New("chat: client is required")
	}
	if c.Model == "" {
		return errors.New("chat: model is required")
	}
	if c.MaxToolRounds <= 0 {
		c.MaxToolRounds = defaultMaxToolRounds
	}
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	c.SchemaFields = c.SchemaFields.Normalize()
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return nil
}
