package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	check "github.com/walteh/tmplts/cmd/tmplts/check"
	proxy "github.com/walteh/tmplts/cmd/tmplts/proxy"
	serve_lsp "github.com/walteh/tmplts/cmd/tmplts/serve-lsp"
	virtual_source "github.com/walteh/tmplts/cmd/tmplts/virtual-source"
	"github.com/walteh/tmplts/pkg/config"
	tdebug "github.com/walteh/tmplts/pkg/debug"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:           "tmplts",
		Short:         "Type checking for .template fragments through their companion classes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to "+config.FileName+" (searched upward from the working directory when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return errors.Errorf("getting working directory: %w", err)
		}
		cfg, err := config.Load(afero.NewOsFs(), wd, configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		// stdout belongs to the protocol when serving, so logs always go to stderr
		logger := tdebug.NewLogger(os.Stderr, cfg.Level(), !color.NoColor)
		ctx := logger.WithContext(cmd.Context())
		cmd.SetContext(cfg.WithContext(ctx))
		return nil
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(serve_lsp.NewServeLSPCommand(rootCmd.Version))
	rootCmd.AddCommand(virtual_source.NewVirtualCommand())
	rootCmd.AddCommand(check.NewCheckCommand())
	rootCmd.AddCommand(proxy.NewProxyCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
