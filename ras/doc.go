// Package ras models remote access connections (dial-up, PPPoE, VPN)
// managed by the operating system.
//
// A Connection is identified solely by its native Handle. Live operations
// (status, statistics, hang-up) are delegated to narrow service contracts
// implemented by a platform backend; see packages rasapi and nm.
//
// Backends are registered in a Locator at start-up:
//
//	loc := ras.NewLocator()
//	ras.RegisterBackend(loc, backend)
//	ras.SetDefaultLocator(loc)
//
//	conns, err := ras.EnumerateConnections()
package ras
