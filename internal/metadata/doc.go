// Package metadata defines the generation mode, the user-tunable settings
// forwarded to the generator, and the tagged result union recorded on queue
// items.
package metadata
