package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/framewire-net/framewire/log"
	"github.com/framewire-net/framewire/relay-app/config"
)

var (
	cfgFile    string
	dumpConfig bool

	rootCmd = &cobra.Command{
		Use:   "framewire-relay",
		Short: "Framewire relay",
		Long:  "A framed message relay: accepts length-prefixed, optionally compressed message streams and echoes or fans them out.",
		RunE:  runApp,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   runVersion,
	}
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	initCommands()
	return rootCmd.Execute()
}

func initCommands() {
	rootCmd.AddCommand(versionCmd)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&dumpConfig, "dump-config", false, "print the effective config and exit")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "enable pretty logging")

	// Server flags
	rootCmd.PersistentFlags().String("listen-addr", "", "framed TCP listen address")
	rootCmd.PersistentFlags().Int("max-connections", 0, "maximum concurrent connections")
	rootCmd.PersistentFlags().Duration("read-timeout", 0, "connection read timeout")
	rootCmd.PersistentFlags().Duration("write-timeout", 0, "connection write timeout")
	rootCmd.PersistentFlags().String("encoding", "", "outbound compression encoding (gzip, zstd, snappy)")

	// Relay flags
	rootCmd.PersistentFlags().String("relay-mode", "", "echo or broadcast")

	// Metrics flags
	rootCmd.PersistentFlags().Bool("metrics", false, "enable metrics")
}

func runApp(cmd *cobra.Command, _ []string) error {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = config.Default()
	}

	applyFlags(cmd, cfg)

	if dumpConfig {
		out, err := cfg.Dump()
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	logger := log.New(cfg.Log.Level, cfg.Log.Pretty)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("go_version", runtime.Version()).
		Msg("Build information")

	logger.Info().
		Str("config_file", cfgFile).
		Str("listen_addr", cfg.Server.ListenAddr).
		Str("relay_mode", cfg.Relay.Mode).
		Str("encoding", cfg.Server.Encoding).
		Bool("metrics_enabled", cfg.Metrics.Enabled).
		Msg("Configuration loaded")

	application, err := NewApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(cmd.Context())
}

func runVersion(*cobra.Command, []string) {
	fmt.Printf("framewire-relay\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flag("log-level").Changed {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flag("log-pretty").Changed {
		cfg.Log.Pretty, _ = cmd.Flags().GetBool("log-pretty")
	}

	if cmd.Flag("listen-addr").Changed {
		cfg.Server.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
	}
	if cmd.Flag("max-connections").Changed {
		cfg.Server.MaxConnections, _ = cmd.Flags().GetInt("max-connections")
	}
	if cmd.Flag("read-timeout").Changed {
		cfg.Server.ReadTimeout, _ = cmd.Flags().GetDuration("read-timeout")
	}
	if cmd.Flag("write-timeout").Changed {
		cfg.Server.WriteTimeout, _ = cmd.Flags().GetDuration("write-timeout")
	}
	if cmd.Flag("encoding").Changed {
		cfg.Server.Encoding, _ = cmd.Flags().GetString("encoding")
	}

	if cmd.Flag("relay-mode").Changed {
		cfg.Relay.Mode, _ = cmd.Flags().GetString("relay-mode")
	}

	if cmd.Flag("metrics").Changed {
		cfg.Metrics.Enabled, _ = cmd.Flags().GetBool("metrics")
	}
}
