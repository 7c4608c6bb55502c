package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go.alderamin.dev/dgrpc/internal/config"
	"go.alderamin.dev/dgrpc/internal/metrics"
)

var flagSubscribeChannelID string

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <event>",
	Short: "Subscribe to a push event and print each occurrence as JSON",
	Long: `Subscribes to evt (e.g. MESSAGE_CREATE, VOICE_STATE_UPDATE) and
prints each decoded event payload as it arrives on the event queue, in
wire arrival order, until interrupted with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubscribe,
}

func init() {
	rootCmd.AddCommand(subscribeCmd)
	subscribeCmd.Flags().StringVar(&flagSubscribeChannelID, "channel-id", "", "channel_id arg, required by channel-scoped events")
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, cfg, teardown, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.Listen)
	}

	if dir, err := dataDir(); err == nil {
		if watcher, err := config.NewWatcher(dir); err == nil {
			defer watcher.Close()
			go watchConfigChanges(ctx, watcher)
		} else {
			slog.Warn("config_watch_unavailable", "error", err)
		}
	}

	evt := args[0]
	var subArgs any
	if flagSubscribeChannelID != "" {
		subArgs = map[string]string{"channel_id": flagSubscribeChannelID}
	}

	if err := client.Subscribe(ctx, evt, subArgs); err != nil {
		return fmt.Errorf("subscribe %s: %w", evt, err)
	}
	fmt.Fprintf(os.Stderr, "subscribed to %s, waiting for events (Ctrl-C to stop)\n", evt)

	for {
		select {
		case ev, ok := <-client.Events():
			if !ok {
				return nil
			}
			var pretty json.RawMessage
			if len(ev.Data) > 0 {
				pretty = ev.Data
			}
			fmt.Printf("%s %s\n", ev.Evt, string(pretty))
		case <-ctx.Done():
			_ = client.Unsubscribe(context.Background(), evt, subArgs)
			return nil
		}
	}
}

// watchConfigChanges logs each config.toml reload picked up while a long
// running subscribe command is active. The connected client and its
// app id are fixed for the process's lifetime; a reload only affects
// settings (like log.level) that future commands will pick up, so this
// is informational rather than applied live.
func watchConfigChanges(ctx context.Context, watcher *config.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-watcher.Changes():
			if !ok {
				return
			}
			slog.Info("config_reloaded", "app_id", cfg.Client.AppID, "log_level", cfg.Log.Level)
		}
	}
}

// serveMetrics exposes the Prometheus registry at /metrics and a trivial
// liveness check at /ready for the duration of a long-running command.
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics_listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Warn("metrics_server_failed", "error", err)
	}
}
