package worker

import "github.com/btcsuite/btclog/v2"

// Subsystem is the logging tag for the task consumer.
const Subsystem = "WRKR"

var log = btclog.Disabled

// UseLogger sets the package logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
