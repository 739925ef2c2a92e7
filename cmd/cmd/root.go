package cmd

import (
	"github.com/ostafen/gifkit/internal/env"
	"github.com/spf13/cobra"
)

const AppName = env.AppName

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - GIF decoder, encoder and inspector",
	}

	rootCmd.PersistentFlags().String("log-level", "INFO", "minimum log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().String("log-file", "", "write decoder and encoder diagnostics to this file instead of the console")

	rootCmd.AddCommand(
		DefineInfoCommand(),
		DefineExtractCommand(),
		DefineEncodeCommand(),
		DefineFormatsCommand(),
	)
	return rootCmd
}

func Execute() error {
	return NewRootCommand().Execute()
}
