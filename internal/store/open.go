package store

import (
	"context"
	"fmt"
	"strings"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Drivers lists the accepted driver names.
var Drivers = []string{DriverSQLite, DriverMySQL, DriverFile, DriverMemory}

// Options selects and locates a store implementation.
type Options struct {
	Driver string
	// Path is the sqlite database file or the file store document.
	Path string
	// DSN is the go-sql-driver/mysql data source name.
	DSN string
}

// Open builds the store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverSQLite, "":
		return OpenSQLite(ctx, opts.Path)
	case DriverMySQL:
		if strings.TrimSpace(opts.DSN) == "" {
			return nil, fmt.Errorf("store: mysql driver requires a dsn")
		}
		return OpenMySQL(ctx, opts.DSN)
	case DriverFile:
		return NewFile(opts.Path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q (want one of %s)", opts.Driver, strings.Join(Drivers, ", "))
	}
}
