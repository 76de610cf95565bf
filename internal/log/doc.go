// Package log provides redacting structured logging built on log/slog.
//
// The RedactingHandler wraps any slog.Handler and masks, before the record
// reaches the wrapped handler:
//   - Credentials for live capability endpoints (tokens, API keys, bearer headers)
//   - Identifiers that can point at a person (patient ids, sample ids, MRNs)
//
// Masking applies in verbose mode too, since debug logs are the ones most
// often pasted into tickets.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Debug("calling live endpoint",
//	    "endpoint", url,
//	    "token", token, // logged as ***REDACTED***
//	)
//	slog.SetDefault(logger)
package log
