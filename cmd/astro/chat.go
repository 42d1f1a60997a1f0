package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/comigor/astro-go/internal/askclient"
	"github.com/comigor/astro-go/internal/logger"
	"github.com/comigor/astro-go/internal/tui"
	"github.com/comigor/astro-go/internal/widget"
)

var (
	chatEndpoint string
	chatSession  string
	chatPlain    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running ASTRO server",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := cfg.Client.Endpoint
		if chatEndpoint != "" {
			endpoint = chatEndpoint
		}
		session := cfg.Client.SessionID
		if chatSession != "" {
			session = chatSession
		}
		client := askclient.New(endpoint, cfg.Client.Timeout)

		if chatPlain || !isTerminal(os.Stdin) {
			logger.SetOutput(os.Stderr)
			printer := tui.NewPrinter(os.Stdout, isTerminal(os.Stdout))
			w := widget.New(client, session, printer.Options())
			var prompt io.Writer
			if isTerminal(os.Stdin) {
				prompt = os.Stdout
			}
			return tui.RunLine(cmd.Context(), w, os.Stdin, prompt)
		}

		// the UI owns the terminal
		logger.SetOutput(io.Discard)
		return tui.Run(cmd.Context(), widget.New(client, session, widget.Options{}))
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatEndpoint, "endpoint", "", "server base URL (default from config)")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id sent with every message (default from config)")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "line mode instead of the full-screen UI")
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
