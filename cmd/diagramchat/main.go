// diagramchat is a terminal client for diagram-assisted conversations: it
// sends a prompt to the response service, dispatches documentation tool
// calls, and renders the reply text alongside any extracted diagram.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
