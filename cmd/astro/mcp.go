package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/comigor/astro-go/internal/knowledge"
	"github.com/comigor/astro-go/internal/logger"
	"github.com/comigor/astro-go/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the mission search tool over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol
		logger.SetOutput(os.Stderr)

		kb, err := knowledge.Load(cfg.Knowledge.MissionData, cfg.Knowledge.CustomResponses)
		if err != nil {
			return fmt.Errorf("load knowledge base: %w", err)
		}
		defer kb.Close()

		return mcpserver.ServeStdio(mcpserver.New(kb, version))
	},
}
