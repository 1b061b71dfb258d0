// Package main provides the entry point for goras.
// goras inspects and controls the remote access connections (dial-up, VPN
// and broadband) of the host.
//
// Usage:
//
//	goras <command> [options]
//
// Environment:
//
//	On Windows the Remote Access Service (rasapi32.dll) is used. On Linux
//	NetworkManager must be reachable on the system D-Bus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yllada/goras/cli"
	"github.com/yllada/goras/common"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

func main() {
	// Cancel on SIGINT/SIGTERM so hangup and watch stop cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := cli.New(cli.BuildInfo{
		Version:   appVersion,
		Commit:    commitSHA,
		BuildTime: buildTime,
	})
	err := app.Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		common.LogDebug("Command failed: %v", err)
	}
	_ = common.CloseLogger()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
