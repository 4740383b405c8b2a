package db

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed migrations
var migrationsFS embed.FS

// DevMode switches getMigrationsFS to read migrations from the source tree
// instead of the embedded copy, so new SQL files take effect without a
// rebuild. Leave false in production binaries.
var DevMode = false

// getMigrationsFS returns the migrations filesystem rooted at the directory
// containing the *.sql files.
func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		return os.DirFS("internal/db/migrations"), nil
	}
	return fs.Sub(migrationsFS, "migrations")
}
