package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"permock/internal/cdp"
	"permock/internal/config"
	"permock/internal/handler"
	"permock/internal/logger"
	"permock/internal/mock"
	"permock/internal/policy"
	"permock/internal/storage"
	"permock/pkg/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Attach to the browser and start intercepting",
	Example: `  permock run
  permock run --config permock.yaml
  permock run --devtools http://127.0.0.1:9222`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntercept()
	},
}

func init() {
	runCmd.Flags().String("config", "", "config file path")
	runCmd.Flags().String("devtools", "", "DevTools URL of the browser to attach to")
	runCmd.Flags().String("target", "", "DevTools target ID (default: first page)")
	viper.BindPFlag("run.config", runCmd.Flags().Lookup("config"))
	viper.BindPFlag("run.devtools", runCmd.Flags().Lookup("devtools"))
	viper.BindPFlag("run.target", runCmd.Flags().Lookup("target"))
	rootCmd.AddCommand(runCmd)
}

func runIntercept() error {
	cfg, err := config.Load(viper.GetString("run.config"))
	if err != nil {
		return err
	}
	if v := viper.GetString("run.devtools"); v != "" {
		cfg.DevTools.URL = v
	}
	if v := viper.GetString("run.target"); v != "" {
		cfg.DevTools.Target = v
	}

	log := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Writer: cfg.Log.Writer,
		File:   cfg.Log.File,
	})

	pol, err := policy.New(cfg.Watch.Mockable, cfg.Watch.Ignored)
	if err != nil {
		return fmt.Errorf("build policy: %w", err)
	}

	var store *storage.Store
	if cfg.Sqlite.Dsn != "" {
		store, err = storage.Open(cfg.Sqlite.Dsn, cfg.Sqlite.Prefix, log)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()
	}

	registry := mock.Defaults("https://" + cfg.Watch.Host)
	var recorder mock.Recorder
	if store != nil {
		recorder = store
	}
	dispatcher := mock.NewDispatcher(registry, recorder, log)

	events := make(chan domain.InterceptEvent, 256)
	h := handler.New(handler.Config{
		Policy:     pol,
		Dispatcher: dispatcher,
		Events:     events,
		Logger:     log,
	})

	mgr := cdp.New(cdp.Options{
		DevToolsURL:      cfg.DevTools.URL,
		Pattern:          cfg.Pattern(),
		ProcessTimeoutMS: cfg.DevTools.ProcessTimeoutMS,
		Handler:          h,
		Logger:           log,
	})
	if err := mgr.AttachTarget(cfg.DevTools.Target); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer mgr.Detach()
	if err := mgr.Enable(); err != nil {
		return fmt.Errorf("enable: %w", err)
	}

	go drainEvents(events, log)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stats := h.Stats()
	log.Info("收到退出信号，停止拦截",
		"intercepted", stats.Intercepted,
		"ignored", stats.Ignored,
		"mutated", stats.Mutated,
		"observed", stats.Observed,
		"passedThrough", stats.PassedThrough,
		"aborted", stats.Aborted)
	return mgr.Disable()
}

// drainEvents 消费事件通道，改写事件提升到 info 级别
func drainEvents(events <-chan domain.InterceptEvent, log logger.Logger) {
	for evt := range events {
		if evt.Result == domain.ResultMutated {
			log.Info("响应已替换", "trace", evt.Trace, "url", evt.URL, "fields", len(evt.Changes))
			continue
		}
		log.Debug("响应事件", "trace", evt.Trace, "url", evt.URL, "result", string(evt.Result))
	}
}
