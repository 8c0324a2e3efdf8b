package queue

import "github.com/btcsuite/btclog/v2"

// Subsystem is the logging tag for the task queue.
const Subsystem = "QUEU"

var log = btclog.Disabled

// UseLogger sets the package logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
