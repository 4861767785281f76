// Package pool routes application requests to a shared or transient
// connection keyed by (host, port, encryption, settings fingerprint),
// correlating out-of-order responses back to caller-supplied context
// and driving idle/keep-alive teardown and retry policy (spec §4.6).
//
// Grounded on the teacher's Client/HostClient pairing in client.go and
// configure.go, generalized from a single fixed HTTP/2 client into a
// registry of per-host pools that can hold either H1 or H2 connections.
package pool

import "fmt"

// PoolID identifies one logical destination: a (host, port) pair plus
// whether the connection is encrypted and a fingerprint of the
// negotiated settings that would make two connections to the same host
// incompatible for sharing (e.g. differing ALPN or H2 SETTINGS
// negotiation policy configured by the caller).
type PoolID struct {
	Host                string
	Port                int
	Encrypted           bool
	SettingsFingerprint string
}

func (id PoolID) String() string {
	scheme := "http"
	if id.Encrypted {
		scheme = "https"
	}
	if id.SettingsFingerprint == "" {
		return fmt.Sprintf("%s://%s:%d", scheme, id.Host, id.Port)
	}
	return fmt.Sprintf("%s://%s:%d#%s", scheme, id.Host, id.Port, id.SettingsFingerprint)
}
