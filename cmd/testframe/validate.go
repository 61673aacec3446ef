package main

import (
	"fmt"

	testframe "github.com/skodjob/test-frame-sub000"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

func newValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file and print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := testframe.LoadConfig(configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
