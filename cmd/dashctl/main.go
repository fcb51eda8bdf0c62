package main

import (
	"os"

	"apex-dashboard/cmd/dashctl/commands"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dashctl",
		Short: "Inspect and edit the persisted Apex dashboard config",
	}

	rootCmd.AddCommand(commands.NewShowCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewImportCommand())
	rootCmd.AddCommand(commands.NewEncryptionCommand())
	rootCmd.AddCommand(commands.NewTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
