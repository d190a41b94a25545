// Package logger builds configured log/slog loggers.
//
// Services in this module accept a *slog.Logger through a functional option
// and default to a discard logger; hosts use this package to construct the
// one they inject.
package logger
