package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/splat3api/splatsync/internal/app"
	"github.com/splat3api/splatsync/internal/config"
	"github.com/splat3api/splatsync/internal/logger"
	"github.com/splat3api/splatsync/internal/version"
)

const usage = `usage:
  splatsync                 serve /trigger and run the scheduler
  splatsync run "<command>" run one command and exit
  splatsync version

commands: "update schedule", "update x-ranking", "update season-info",
          "archive x-ranking [DD-Mon-YYYY]"`

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("❌ failed to read .env: %v", err)
	}

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "version" {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = loggerClient.Sync() }()
	loggerClient.Debugf("cfg: %+v", cfg.Redacted())

	a, err := app.New(cfg, loggerClient)
	if err != nil {
		loggerClient.Fatalf("❌ splatsync failed to start: %v", err)
	}

	switch {
	case len(args) == 0:
		if err := a.Serve(); err != nil {
			loggerClient.Fatalf("❌ splatsync failed: %v", err)
		}
	case args[0] == "run" && len(args) > 1:
		command := strings.Join(args[1:], " ")
		if err := a.RunOnce(context.Background(), command); err != nil {
			loggerClient.Errorf("❌ %s failed: %v", command, err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}
