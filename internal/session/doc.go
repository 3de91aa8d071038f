// Package session persists the local user stub and Gemini credential.
//
// The record lives in a small SQLite key/value table so the CLI and the
// local control surface share the same login and key across restarts.
// There is no real authentication: Login only shapes a user profile.
package session
