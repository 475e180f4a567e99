// Package logging configures the process-wide slog logger.
//
// Init installs a JSON or text handler as slog.Default, so packages log
// through plain slog calls without holding a logger type from here. Every
// record passes through a Redactor that masks credential material, both
// by attribute key and by value pattern. The package also owns the
// request-ID context helpers shared by the HTTP layer, the router, and
// the attempt journal.
package logging
