package mail

import "github.com/btcsuite/btclog/v2"

// Subsystem is the logging tag for review mail.
const Subsystem = "MAIL"

var log = btclog.Disabled

// UseLogger sets the package logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
