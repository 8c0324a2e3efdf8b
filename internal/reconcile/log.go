package reconcile

import "github.com/btcsuite/btclog/v2"

// Subsystem is the logging tag for version reconciliation.
const Subsystem = "RCON"

var log = btclog.Disabled

// UseLogger sets the package logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
