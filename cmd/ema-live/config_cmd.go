package main

import (
	"fmt"

	"github.com/koscakluka/ema-live/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := config.Schema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return nil
		},
	})

	var path string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with the API key masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Loader{}.Load(path)
			if err != nil {
				return err
			}
			cfg.APIKey = mask(cfg.APIKey)
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	showCmd.Flags().StringVarP(&path, "config", "c", "", "path to a YAML config file")
	configCmd.AddCommand(showCmd)

	return configCmd
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
