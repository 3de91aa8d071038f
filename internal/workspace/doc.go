// Package workspace is the application facade shared by the CLI and the
// local control surface.
//
// A Workspace owns the in-memory queue, the preview store and the batch
// scheduler, and keeps the user-selected mode, upload mode, platform and
// settings. It enforces the interaction rules around them: switching mode
// clears the queue, the queue cannot be cleared or extended while a batch
// runs, and selecting a platform applies its preset.
package workspace
