package migrations

import "embed"

// Files stores forward-only SQL migrations embedded into the binary, one
// directory per database dialect. File names follow golang-migrate's
// <version>_<title>.up.sql layout.
//
//go:embed sqlite/*.sql postgres/*.sql
var Files embed.FS
