// Package service manages the timelined systemd user service unit.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
)

// UnitName is the systemd user unit that runs timelined.
const UnitName = "timelined.service"

// UnitContents returns the unit file for the given binary and config paths.
// An empty configPath leaves the daemon on its default config lookup.
func UnitContents(binaryPath, configPath string) string {
	execStart := binaryPath
	if configPath != "" {
		execStart += " --config " + configPath
	}
	return fmt.Sprintf(`[Unit]
Description=timelined saved timeline service
Documentation=https://github.com/modoterra/sightline

[Service]
Type=notify
ExecStart=%s
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`, execStart)
}

// UnitPath returns the path to the systemd user unit file.
func UnitPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(configDir, "systemd", "user", UnitName), nil
}

// Install writes the unit file, reloads the user manager, and enables and
// starts the service.
func Install(ctx context.Context, configPath string) error {
	binaryPath, err := exec.LookPath("timelined")
	if err != nil {
		return fmt.Errorf("timelined not found in PATH: %w", err)
	}
	binaryPath, err = filepath.Abs(binaryPath)
	if err != nil {
		return fmt.Errorf("cannot resolve timelined path: %w", err)
	}
	if configPath != "" {
		if configPath, err = filepath.Abs(configPath); err != nil {
			return fmt.Errorf("cannot resolve config path: %w", err)
		}
	}

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(unitPath), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	if err := os.WriteFile(unitPath, []byte(UnitContents(binaryPath, configPath)), 0o644); err != nil {
		return fmt.Errorf("cannot write unit file: %w", err)
	}

	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{unitPath}, false, true); err != nil {
		return fmt.Errorf("enable %s: %w", UnitName, err)
	}
	return waitJob(ctx, UnitName, "start", func(ch chan<- string) error {
		_, err := conn.StartUnitContext(ctx, UnitName, "replace", ch)
		return err
	})
}

// Uninstall stops and disables the service, removes the unit file, and
// reloads the user manager.
func Uninstall(ctx context.Context) error {
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	// Stopping or disabling a unit that is not loaded fails; neither matters here.
	_ = waitJob(ctx, UnitName, "stop", func(ch chan<- string) error {
		_, err := conn.StopUnitContext(ctx, UnitName, "replace", ch)
		return err
	})
	_, _ = conn.DisableUnitFilesContext(ctx, []string{UnitName}, false)

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}
	if err := os.Remove(unitPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot remove unit file: %w", err)
	}

	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	return nil
}

func waitJob(ctx context.Context, unit, verb string, enqueue func(ch chan<- string) error) error {
	ch := make(chan string, 1)
	if err := enqueue(ch); err != nil {
		return fmt.Errorf("%s %s: %w", verb, unit, err)
	}
	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("%s %s: job %s", verb, unit, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a human-readable status report for the socket and the unit.
func Status(ctx context.Context, socketPath string) string {
	var lines []string

	if _, err := os.Stat(socketPath); err == nil {
		lines = append(lines, "socket: active ("+socketPath+")")
	} else {
		lines = append(lines, "socket: inactive ("+socketPath+")")
	}

	unitPath, err := UnitPath()
	if err != nil {
		return strings.Join(lines, "\n")
	}
	if _, err := os.Stat(unitPath); err != nil {
		lines = append(lines, "systemd user service: not installed")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "systemd user service: "+unitState(ctx))
	return strings.Join(lines, "\n")
}

func unitState(ctx context.Context) string {
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return "unknown"
	}
	defer conn.Close()

	units, err := conn.ListUnitsByNamesContext(ctx, []string{UnitName})
	if err != nil || len(units) == 0 {
		return "unknown"
	}
	return FormatState(units[0].ActiveState, units[0].SubState)
}

// FormatState renders a unit's active and sub state, e.g. "active (running)".
func FormatState(active, sub string) string {
	if sub == "" || sub == active {
		return active
	}
	return active + " (" + sub + ")"
}
