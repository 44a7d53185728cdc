// Package logging defines the minimal structured logging surface used across
// Skycast. Components accept the Logger interface so applications can wire
// slog, a test logger, or nothing at all (NoOpLogger).
package logging
