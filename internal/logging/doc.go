// Package logging configures the process-wide slog logger for watchsieve.
//
// By default logs go to stderr only: human-readable text when stderr is a
// terminal, JSON otherwise. With --debug a rotating JSON log file is added
// under ~/.watchsieve/logs/ so filter decisions can be inspected after the
// fact.
package logging
