// Package main hosts the stockmeta CLI entrypoint and command graph.
//
// `run` processes files in-process and exits; `serve` keeps a workspace alive
// behind the local control surface, and the queue, run and export commands
// talk to that server over HTTP. Session and configuration commands work on
// local state directly.
//
// Keep this package lean: behaviour belongs in the internal packages, and
// commands here only parse flags, wire dependencies and render output.
package main
