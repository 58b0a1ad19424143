package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edumentor/edumentor-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented starter config file",
		Long: `Write a starter config file with every option documented and commented
out. Refuses to overwrite an existing file.`,
		RunE: runConfigInit,
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(resolvedCfg)
	}

	return config.RenderEffective(resolvedCfg, os.Stdout)
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path := flagConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if err := config.WriteStarter(path); err != nil {
		return err
	}

	statusf("Wrote starter config to %s.\n", path)

	return nil
}
