// Package daemon runs the long-lived `stockmeta serve` process.
//
// It holds a flock-based lock so only one instance owns the state directory,
// serves the local control surface, and runs the optional hot folder watcher
// until the context ends. Request handling lives in the api package and
// ingestion in hotfolder; the daemon only owns startup and shutdown.
package daemon
