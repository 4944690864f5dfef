// Package logging wires log/slog with the console and JSON handlers used
// across the repository, plus attribute helpers and standardized field keys.
package logging
