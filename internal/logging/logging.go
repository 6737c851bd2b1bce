// Package logging centralizes the runtime's subsystem loggers. It mirrors
// the teacher repo's use of github.com/ipfs/go-log/v2: loggers are named
// per subsystem (Start creates "noderuntime/node" and hands it to netstack,
// runtime and reqresp; keyfile has its own), and a handful of noisy
// libp2p subsystems are tuned down once at
// package init so routine dial backoff / relay churn doesn't flood stderr.
package logging

import (
	logging "github.com/ipfs/go-log/v2"
)

func init() {
	// Dial failures and relay backoff are expected churn in a long-running
	// node; keep them out of normal operation logs.
	logging.SetLogLevel("swarm2", "error")
	logging.SetLogLevel("relay", "warn")
	logging.SetLogLevel("autorelay", "warn")
	logging.SetLogLevel("autonat", "warn")
	logging.SetLogLevel("dht", "warn")
}

// Logger returns a named subsystem logger, e.g. Logger("runtime").
func Logger(subsystem string) *logging.ZapEventLogger {
	return logging.Logger("noderuntime/" + subsystem)
}
