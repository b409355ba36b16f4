package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ema-live",
		Short: "Talk to a Gemini Live model from the terminal",
		Long: `ema-live streams microphone audio to a Gemini Live session, plays the
spoken reply and shows a running transcript of both sides.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCommand(), newConfigCommand(), newVersionCommand())
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ema-live", version)
		},
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
