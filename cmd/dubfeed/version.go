package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/dubfeed/internal/buildinfo"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Affiche les informations de build",
		RunE: func(cmd *cobra.Command, args []string) error {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(buildinfo.Current())
		},
	}
}
