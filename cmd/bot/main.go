package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homeworkbot/internal/app"
	"homeworkbot/internal/config"
	logx "homeworkbot/pkg/logx"
)

func main() {
	var cfgPath, envFile string
	flag.StringVar(&cfgPath, "config", "", "path to optional config file (json or yaml)")
	flag.StringVar(&envFile, "env-file", config.DefaultEnvFile, "path to .env file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath, app.WithEnvFile(envFile))
	if err != nil {
		logx.NewConsole("info").Critical("startup configuration is invalid; exiting", logx.Err(err))
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		a.Logger().Critical("start failed", logx.Err(err))
		_ = a.Stop(context.Background(), app.StopFatalError)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	// Both channels may be ready together; a received signal is never reported as fatal.
	reason := app.StopSignal
	fatal := ctx.Err() == nil && a.Err() != nil
	if fatal {
		reason = app.StopFatalError
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	err = a.Stop(stopCtx, reason)
	if fatal {
		if err == nil {
			err = a.Err()
		}
		logx.NewConsole("info").Critical("stopped on fatal error", logx.Err(err))
		stopCancel()
		os.Exit(1)
	}
}
