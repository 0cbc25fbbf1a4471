// Package logging configures structured logging for pkgindex.
//
// Without --debug only warnings and errors reach stderr. With --debug,
// JSON logs at debug level are also written to ~/.pkgindex/logs/pkgindex.log
// through a size-rotated writer.
package logging
