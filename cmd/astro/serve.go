package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/comigor/astro-go/internal/agent"
	"github.com/comigor/astro-go/internal/history"
	"github.com/comigor/astro-go/internal/knowledge"
	"github.com/comigor/astro-go/internal/llm"
	"github.com/comigor/astro-go/internal/logger"
	"github.com/comigor/astro-go/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve /ask, /chat and the web widget",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		kb, err := knowledge.Load(cfg.Knowledge.MissionData, cfg.Knowledge.CustomResponses)
		if err != nil {
			return fmt.Errorf("load knowledge base: %w", err)
		}
		defer kb.Close()

		store := history.Open(cfg.History.DBPath)
		defer func() {
			if err := store.Close(); err != nil {
				logger.L.Warn("failed to close history store", "error", err)
			}
		}()

		llmClient := llm.NewClient(cfg.LLM)
		a := agent.New(llmClient, kb, store, *cfg)

		logger.L.Info("assistant ready", "missions", kb.Len(), "model", cfg.LLM.Model, "persistent_history", store.Persistent())
		return server.New(a, *cfg).Run(ctx)
	},
}
