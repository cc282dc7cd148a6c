// Package log provides slog loggers that mask secrets.
//
// The SecureHandler wraps any slog.Handler and sanitizes log output:
//   - attributes named like credentials (x-goog-api-key, cookie,
//     authorization, api_key, token, password)
//   - values that look like bearer tokens, JWTs or long opaque keys
//   - Google API keys and key= query parameters embedded in URLs, error
//     values and messages
//
// The Gemini API key is sent as a header, but retry and transport errors
// can still carry request URLs, so masking applies to every record.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, log.Level(verbose, slog.LevelInfo))
//	slog.SetDefault(logger)
//
//	logger.Warn("gemini request failed",
//	    "url", "https://generativelanguage.googleapis.com/v1beta/models?key=AIza...",
//	)
//	// url=https://generativelanguage.googleapis.com/v1beta/models?key=***REDACTED***
package log
