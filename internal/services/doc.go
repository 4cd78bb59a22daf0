// Package services implements the use cases shared by the CLI and the HTTP API.
//
// MergeService resolves inputs, runs the assembler, optionally summarises the
// result and saves non-empty tables. HealthService backs the health and
// version endpoints. Services take a *slog.Logger and honour the context
// passed to every blocking call.
package services
