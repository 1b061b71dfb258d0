// Package common provides shared constants, types, utilities, and interfaces
// used throughout goras.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: Application-wide constants like poll intervals, file names, and backend names
//   - Errors: Sentinel errors shared by the connection entity and the native backends
//   - Interfaces: The Logger abstraction handed to backends
//   - Logger: Leveled logging rendered by zerolog, with a rotating log file
//   - Utils: Common utility functions for directories and string checks
//
// # Usage
//
//	// Use logger
//	common.LogInfo("Hanging up %s", conn.EntryName())
//
//	// Check errors
//	if errors.Is(err, common.ErrConnectionTerminated) {
//	    // The native connection is gone
//	}
package common
