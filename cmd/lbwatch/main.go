package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"lbwatch/internal/app"
	"lbwatch/internal/config"
	"lbwatch/internal/kaggle"
)

func main() {
	var (
		cfgPath string
		once    bool
	)
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json or yaml")
	flag.BoolVar(&once, "once", false, "run a single poll cycle and exit")
	flag.Parse()

	// .env in the working directory first, then next to the config file
	envFiles := []string{".env"}
	if dir := filepath.Dir(cfgPath); dir != "." {
		envFiles = append(envFiles, filepath.Join(dir, ".env"))
	}
	if err := kaggle.LoadDotEnv(envFiles...); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "fatal: configuration file %s not found\n", cfgPath)
		} else {
			fmt.Fprintln(os.Stderr, "fatal: config:", err)
		}
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if once {
		a.RunOnce(ctx)
		_ = a.Stop(context.Background())
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		_ = a.Stop(context.Background())
		os.Exit(1)
	}

	<-a.Done()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		fmt.Fprintln(os.Stderr, "stop:", err)
	}
	if err := a.Err(); err != nil {
		stopCancel()
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
