package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/modoterra/sightline/internal/buildinfo"
	"github.com/modoterra/sightline/pkg/config"
	"github.com/modoterra/sightline/pkg/core"
	"github.com/modoterra/sightline/pkg/opentimeline"
	"github.com/modoterra/sightline/pkg/query"
	"github.com/modoterra/sightline/pkg/storage"
	"github.com/modoterra/sightline/pkg/store"
	"github.com/modoterra/sightline/pkg/transport/uds"
	tuimodel "github.com/modoterra/sightline/pkg/tui/model"
)

var (
	configPath string
	socketPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "sightline",
	Short:        "Open saved investigation timelines",
	Long:         "Sightline is a TUI and CLI that loads saved timelines from timelined into a local timeline state.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runTUI(cmd, "")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to sightline.yaml")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "daemon socket path (overrides config)")

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serviceCmd)
}

// --- Shared helpers ---

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if socketPath != "" {
		cfg.Socket = socketPath
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()}))
}

// ensureDaemon starts timelined in the background when its socket is missing.
func ensureDaemon(cfg *config.Config) {
	if _, err := os.Stat(cfg.Socket); err == nil {
		return
	}
	args := []string{}
	if cfg.FilePath != "" {
		args = append(args, "--config", cfg.FilePath)
	}
	cmd := exec.Command("timelined", args...)
	if err := cmd.Start(); err != nil {
		return
	}
	for i := 0; i < 30; i++ {
		if _, err := os.Stat(cfg.Socket); err == nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	fmt.Fprintln(os.Stderr, "warning: could not start timelined, continuing anyway")
}

func dialDaemon(cfg *config.Config) (*uds.Client, error) {
	client, err := uds.Dial(cfg.Socket)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon at %s: %w", cfg.Socket, err)
	}
	return client, nil
}

// session is a daemon connection plus the query client layered on it.
type session struct {
	conn   *uds.Client
	client query.Client
	cache  *query.RedisCache
}

func (s *session) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
	s.conn.Close()
}

// connect dials the daemon and wraps it in the Redis response cache when
// enabled. An unreachable Redis only disables caching.
func connect(cfg *config.Config, logger *slog.Logger) (*session, error) {
	conn, err := dialDaemon(cfg)
	if err != nil {
		return nil, err
	}
	s := &session{conn: conn, client: query.NewUDSClient(conn)}
	if !cfg.Cache.Enabled {
		return s, nil
	}

	rc := cfg.Cache.Redis
	cache, err := query.NewRedisCache(query.RedisConfig{
		Addr:      rc.Addr,
		Password:  rc.Password,
		DB:        rc.DB,
		KeyPrefix: rc.KeyPrefix,
		TTL:       rc.TTL,
	})
	if err != nil {
		logger.Warn("query cache disabled", "err", err)
		return s, nil
	}
	s.cache = cache
	s.client = query.NewCachingClient(s.client, cache, logger)
	return s, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Open: TUI ---

var openDuplicate bool

var openCmd = &cobra.Command{
	Use:   "open [id]",
	Short: "Browse saved timelines and open one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		return runTUI(cmd, id)
	},
}

func init() {
	openCmd.Flags().BoolVar(&openDuplicate, "duplicate", false, "open as an unsaved copy")
}

func runTUI(_ *cobra.Command, id string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ensureDaemon(cfg)
	s, err := connect(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	app := tuimodel.New(tuimodel.Options{
		Client:    s.client,
		Events:    s.conn,
		OpenID:    id,
		Duplicate: openDuplicate,
		Logger:    logger,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// --- Show ---

var showDuplicate bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Open a timeline into an in-memory store and print the resulting state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		s, err := connect(cfg, logger)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		st := store.New(logger)
		if err := opentimeline.Open(ctx, s.client, st, args[0], showDuplicate); err != nil {
			return err
		}
		return printJSON(cmd, st.State())
	},
}

func init() {
	showCmd.Flags().BoolVar(&showDuplicate, "duplicate", false, "open as an unsaved copy")
}

// --- List ---

var (
	listJSON    bool
	listRefresh bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved timelines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := connect(cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
		defer cancel()

		policy := query.CacheFirst
		if listRefresh {
			policy = query.NetworkOnly
		}
		resp, err := s.client.Query(ctx, query.ListTimelines(), query.Options{FetchPolicy: policy})
		if err != nil {
			return err
		}
		var timelines []core.OpenTimelineResult
		if err := json.Unmarshal(resp.Data, &timelines); err != nil {
			return fmt.Errorf("decode timelines: %w", err)
		}

		if listJSON {
			return printJSON(cmd, timelines)
		}
		if len(timelines) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no saved timelines")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tPINNED\tNOTES\tFAVORITE")
		for _, tl := range timelines {
			title := "(untitled)"
			if !core.IsUntitled(tl) {
				title = *tl.Title
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\n", tl.SavedObjectID, title, core.PinnedEventCount(tl), core.NoteCount(tl), tl.Favorite)
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	listCmd.Flags().BoolVar(&listRefresh, "refresh", false, "bypass the query cache")
}

// --- Import ---

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Save timeline documents from a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := storage.LoadRecords(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := dialDaemon(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		for _, doc := range docs {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			resp, err := client.Request(ctx, uds.MethodSaveTimeline, uds.SaveTimelineRequest{Timeline: doc})
			cancel()
			if err != nil {
				return err
			}
			var saved uds.SaveTimelineResponse
			if err := resp.UnmarshalData(&saved); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", saved.SavedObjectID)
		}
		return nil
	},
}

// --- Delete ---

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := dialDaemon(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		if _, err := client.Request(ctx, uds.MethodDeleteTimeline, uds.DeleteTimelineRequest{ID: args[0]}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

// --- Ping ---

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if timelined is running",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := dialDaemon(cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
		defer cancel()

		resp, err := client.Request(ctx, uds.MethodPing, nil)
		if err != nil {
			return err
		}

		var pong uds.PingResponse
		if err := resp.UnmarshalData(&pong); err != nil {
			return err
		}
		if pong.Pong {
			fmt.Fprintf(cmd.OutOrStdout(), "pong ✓ (timelined %s)\n", pong.Version)
		}
		return nil
	},
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String("sightline"))
	},
}

// --- Config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect sightline.yaml",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a sightline.yaml config",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		errs := config.Validate(cfg)
		name := cfg.FilePath
		if name == "" {
			name = "defaults"
		}
		if len(errs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (storage %s)\n", name, cfg.Storage.Driver)
			return nil
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d error(s)\n", name, len(errs))
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "  • %s\n", e)
		}
		return fmt.Errorf("%s is invalid", name)
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
