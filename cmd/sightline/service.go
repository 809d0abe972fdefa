package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modoterra/sightline/pkg/daemon/service"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the timelined systemd user service",
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install, enable, and start the timelined user service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := service.Install(cmd.Context(), configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "installed %s\n", service.UnitName)
		return nil
	},
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop, disable, and remove the timelined user service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := service.Uninstall(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", service.UnitName)
		return nil
	},
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show socket and service status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), service.Status(cmd.Context(), cfg.Socket))
		return nil
	},
}

func init() {
	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)
	serviceCmd.AddCommand(serviceStatusCmd)
}
