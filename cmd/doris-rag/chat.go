package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"doris-rag/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal chat; an empty line exits",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		// Log lines would tear the alt screen.
		a.logger = zap.NewNop()

		ctx := cmd.Context()
		qs, err := a.buildQueryStack(ctx)
		if err != nil {
			return err
		}
		defer qs.Close()

		m := tui.New(ctx, qs.svc, a.catalog)
		_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	},
}
