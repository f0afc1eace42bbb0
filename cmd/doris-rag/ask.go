package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"doris-rag/internal/i18n"
	"doris-rag/internal/tui"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync() //nolint:errcheck

		ctx := cmd.Context()
		qs, err := a.buildQueryStack(ctx)
		if err != nil {
			return err
		}
		defer qs.Close()

		res, err := qs.svc.Turn(ctx, strings.Join(args, " "), nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if askJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(res.Answer)
		}
		fmt.Fprintln(out, a.catalog.Format(i18n.CLIAugmentedQuery, res.Augmented.RewrittenText))
		fmt.Fprintln(out, a.catalog.Get(i18n.CLIAnswerLabel))
		fmt.Fprintln(out, res.Answer.Answer)
		if refs := tui.FormatSources(res.Answer.Sources); refs != "" {
			fmt.Fprintln(out)
			fmt.Fprintln(out, a.catalog.Get(i18n.UISourceRef)+refs)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer and sources as JSON")
}
