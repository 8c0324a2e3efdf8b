package webhook

import "github.com/btcsuite/btclog/v2"

// Subsystem is the logging tag for test and deploy webhooks.
const Subsystem = "HOOK"

var log = btclog.Disabled

// UseLogger sets the package logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
