// Package logging provides structured logging for sprig-core.
//
// It wraps the standard library's log/slog with configuration-driven
// level filtering, output format selection, and default service fields.
// Domain packages accept a minimal Logger interface (Debug/Info/Warn/Error)
// which *logging.Logger satisfies.
package logging
