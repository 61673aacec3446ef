package main

import (
	"log/slog"
	"os"

	testframe "github.com/skodjob/test-frame-sub000"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	kubeconfig string
	logLevel   string
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "testframe",
		Short: "Inspect test session configuration and collect cluster diagnostics",
		Long: `testframe works with the configuration files used by Kubernetes test
sessions. It validates them and collects the same diagnostics a failing
session would write, from the primary context and every mapped context.`,
		Version: version,
		// Errors are reported by cobra; usage is noise for runtime failures.
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return opts.setupLogging()
		},
	}
	cmd.SetVersionTemplate(`{{printf "testframe version %s\n" .Version}}`)

	cmd.PersistentFlags().StringVar(&opts.kubeconfig, "kubeconfig", "",
		"path to the kubeconfig file (default: KUBECONFIG or ~/.kube/config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "INFO",
		"log level: DEBUG, INFO, WARN or ERROR")

	cmd.AddCommand(newValidateCmd(), newCollectCmd(opts))
	return cmd
}

func (o *rootOptions) setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return err
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	testframe.SetLogger(slog.New(handler).With("component", "testframe"))
	return nil
}

// sessionOptions translates the persistent flags into session options.
func (o *rootOptions) sessionOptions() []testframe.SessionOption {
	var opts []testframe.SessionOption
	if o.kubeconfig != "" {
		opts = append(opts, testframe.WithKubeconfig(o.kubeconfig))
	}
	return opts
}
