// Package gemini provides a minimal client for Google's Gemini
// generateContent REST endpoint.
//
// The client sends one instruction plus one content part (inline base64 data
// or text), optionally constrained to a JSON response schema, and returns the
// concatenated candidate text. Each call is a single attempt: HTTP failures
// surface as *APIError so callers can classify rate limiting with IsRateLimit
// and own their retry policy.
package gemini
