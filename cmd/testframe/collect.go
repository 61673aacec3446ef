package main

import (
	"fmt"

	testframe "github.com/skodjob/test-frame-sub000"
	"github.com/spf13/cobra"
)

// collectOptions holds the flags of the collect command.
type collectOptions struct {
	configPath string
	suite      string
	suffix     string
	logPath    string
}

func newCollectCmd(root *rootOptions) *cobra.Command {
	opts := &collectOptions{}
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect diagnostics from every context of a configuration",
		Long: `collect writes pod logs, events and the configured resource kinds of the
declared namespaces and of every namespace labeled for log collection to
{logPath}/{suite}[/{context}]/{suffix}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := testframe.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logPath != "" {
				cfg.LogPath = opts.logPath
			}
			if err := testframe.CollectDiagnostics(cmd.Context(), cfg, opts.suite, opts.suffix, root.sessionOptions()...); err != nil {
				return err
			}
			base := cfg.LogPath
			if base == "" {
				base = testframe.DefaultLogPath()
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "diagnostics written beneath %s\n", base)
			return err
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to the configuration file")
	cmd.Flags().StringVar(&opts.suite, "suite", "", "suite name used as the collection directory")
	cmd.Flags().StringVar(&opts.suffix, "suffix", "manual", "name of the collection run directory")
	cmd.Flags().StringVar(&opts.logPath, "log-path", "", "override the configured log path")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("suite")
	return cmd
}
