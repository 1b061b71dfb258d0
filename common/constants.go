// Package common provides shared constants, types, and utilities
// used across goras.
package common

import "time"

// Application metadata.
const (
	// AppName is the display name of the application.
	AppName = "goras"
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = "goras"
)

// File names used by the application.
const (
	ConfigFileName  = "config.yaml"
	HistoryFileName = "history.db"
	LogFileName     = "goras.log"
)

// Default timeouts and intervals.
const (
	// PollInterval is how often watch and the connection monitor re-enumerate.
	PollInterval = 1 * time.Second
	// HangUpPollInterval is the wait between hang-up attempts while the
	// native handle is still valid.
	HangUpPollInterval = 50 * time.Millisecond
	// HangUpTimeout bounds the CLI hangup command when no --timeout is given.
	HangUpTimeout = 30 * time.Second
	// ScrapeTimeout bounds a single exporter scrape.
	ScrapeTimeout = 10 * time.Second
)

// Backend names accepted in the configuration file.
const (
	BackendAuto           = "auto"
	BackendRasAPI         = "rasapi"
	BackendNetworkManager = "networkmanager"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// DefaultExporterListen is the default listen address of the metrics exporter.
const DefaultExporterListen = "127.0.0.1:9477"
