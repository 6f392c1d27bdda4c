package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/sessiond/termsess/internal/mcptools"
	"github.com/sessiond/termsess/internal/notify"
	"github.com/sessiond/termsess/internal/session"
)

var version = "0.1.0"

func main() {
	maxCompleted := flag.Int("max-completed", 100, "number of completed sessions to retain")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	slackToken := flag.String("slack-token", "", "Slack bot token; enables Slack notifications when set")
	slackChannel := flag.String("slack-channel", "", "Slack channel to post session-completed notifications to")
	webPush := flag.Bool("webpush", false, "enable web push notifications")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Println("termsess", version)
		return
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	mgr := session.NewManager(logger, *maxCompleted)
	filter := session.NewAdmissionFilter()

	notifier := notify.NewManager(logger)
	if *slackToken != "" && *slackChannel != "" {
		notifier.Register(notify.NewSlackSink(*slackToken, *slackChannel))
		logger.Info("slack notifications enabled", "channel", *slackChannel)
	}
	if *webPush {
		sink, err := notify.NewWebPushSink(logger)
		if err != nil {
			logger.Error("failed to initialize web push", "err", err)
			os.Exit(1)
		}
		notifier.Register(sink)
		logger.Info("web push notifications enabled")
	}
	mgr.OnSessionExit = notifier.OnSessionExit

	cron, err := mgr.StartHousekeeping(logger)
	if err != nil {
		logger.Error("failed to start housekeeping", "err", err)
		os.Exit(1)
	}
	defer cron.Stop()

	srv := server.NewMCPServer("termsess", version, server.WithToolCapabilities(true))
	mcptools.Register(srv, &mcptools.Handlers{Manager: mgr, Filter: filter})

	logger.Info("termsess starting", "version", version, "max_completed", *maxCompleted)
	if err := server.ServeStdio(srv); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
