//go:build !cgo

package storage

import (
	_ "modernc.org/sqlite"
)

// driverName selects the pure-Go SQLite driver for builds without cgo.
const driverName = "sqlite"
