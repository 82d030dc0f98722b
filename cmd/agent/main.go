package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"settingsync/internal/agent"
	"settingsync/internal/config"
	"settingsync/internal/core"
	"settingsync/internal/engine"
	"settingsync/internal/store"
)

// These variables will be set by the build script
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "settingsync",
		Short:         "Video Conference settings synchronization agent",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "agent config file (.toml or .json)")

	root.AddCommand(runCmd(), showCmd(), resetCmd())
	return root
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the agent and serve until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Printf("Starting settingsync agent version: %s, commit: %s, built: %s", version, commit, date)

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			a, err := agent.NewAgent(cfg)
			if err != nil {
				return fmt.Errorf("failed to create agent: %w", err)
			}

			go a.Run()

			// Wait for termination signal for graceful shutdown
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Println("Shutting down agent...")
			a.Shutdown()
			log.Println("Agent shut down gracefully.")
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored Video Conference settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fs := store.NewFileStore(cfg.Store.Root)
			blob, err := fs.Get(store.SubPath(cfg.Store.Subfolder, core.ModuleName))
			if err != nil {
				return err
			}

			if key == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(blob))
				return nil
			}
			if !gjson.ValidBytes(blob) {
				return fmt.Errorf("stored settings are not valid JSON")
			}
			value := gjson.GetBytes(blob, key)
			if !value.Exists() {
				return fmt.Errorf("no value at %q", key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), value.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "gjson path to print, e.g. properties.toolbar_position.value")
	return cmd
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Load the settings once, repairing the store, and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			provider, err := agent.NewProvider(cfg.Devices)
			if err != nil {
				return err
			}

			fs := store.NewFileStore(cfg.Store.Root)
			e, err := engine.Load(engine.Options{
				Store:        fs,
				Devices:      provider,
				General:      core.LoadGeneralSettings(fs, nil),
				SettingsPath: store.SubPath(cfg.Store.Subfolder, core.ModuleName),
			})
			if err != nil {
				return err
			}
			e.VerifyStore()

			out, err := json.MarshalIndent(e.State(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
