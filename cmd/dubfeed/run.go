package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Exécute un run: fetch, résolution, réconciliation, écriture du feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg, "dubfeed")
			if err != nil {
				return err
			}
			syncer, _, err := ctx.newSyncer(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}

			summary, err := syncer.Run(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run summary as JSON on stdout")
	return cmd
}
