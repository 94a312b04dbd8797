package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cexll/diagramchat-go/pkg/chat"
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send one prompt and print the reply with any diagram",
	Example: `  diagramchat ask "draw the login flow as a sequence diagram"
  diagramchat --docs-server stdio://docs-server ask "how does billing work?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var askFlags struct {
	system      string
	diagramOnly bool
}

func init() {
	askCmd.Flags().StringVar(&askFlags.system, "system", "", "system prompt prepended to the exchange")
	askCmd.Flags().BoolVar(&askFlags.diagramOnly, "diagram-only", false, "print only the diagram definition")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var messages []chat.Message
	if askFlags.system != "" {
		messages = append(messages, chat.System(askFlags.system))
	}
	messages = append(messages, chat.User(strings.Join(args, " ")))

	res, err := engine.Chat(ctx, messages)
	if err != nil {
		if errors.Is(err, chat.ErrMissingAnchor) {
			fmt.Fprintln(os.Stderr, styles.Err.Render("the service requested tools but the response cannot be continued"))
		}
		return err
	}

	if askFlags.diagramOnly {
		if res.DiagramDefinition == "" {
			return errors.New("no diagram in the reply")
		}
		fmt.Println(res.DiagramDefinition)
		return nil
	}

	for _, call := range res.ToolCalls {
		note := fmt.Sprintf("tool %s (%s)", call.Name, call.Duration.Round(time.Millisecond))
		if call.Error != "" {
			note += ": " + call.Error
		}
		fmt.Fprintln(os.Stderr, styles.ToolNote.Render(note))
	}

	if res.Text != "" {
		fmt.Println(styles.Reply.Render(res.Text))
	}
	if res.DiagramDefinition != "" {
		fmt.Println(styles.Label.Render("diagram"))
		fmt.Println(styles.Diagram.Render(res.DiagramDefinition))
	}
	if res.StopReason == chat.StopMaxToolRounds {
		fmt.Fprintln(os.Stderr, styles.ToolNote.Render("tool budget exhausted; reply may be partial"))
	}
	return nil
}
