// Package logx is chorebot's structured logging layer.
//
// Logger wraps zerolog and keeps three outputs behind one Service:
//   - console output with a short timestamp and short caller
//   - JSON lines appended to a file
//   - an optional chat sink (min level + rate limit) for operators
//
// Service.Apply swaps outputs at runtime; loggers derived from the service
// pick up the change without being rebuilt.
package logx
