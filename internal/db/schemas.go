package db

import "embed"

// sqlSchemas holds the migration files compiled into the binary.
//
//go:embed migrations/*.sql
var sqlSchemas embed.FS
