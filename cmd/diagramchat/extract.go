package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cexll/diagramchat-go/pkg/diagram"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract a diagram definition from text",
	Long: `Extract reads text from a file or stdin and prints the first diagram
definition found: a mermaid code fence, a fenced block opening with a known
diagram keyword, or a <mermaid> tag.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}

	def, ok := diagram.Extract(string(data))
	if !ok {
		return errors.New("no diagram found")
	}
	fmt.Println(def)
	return nil
}
