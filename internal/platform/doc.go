// Package platform describes the microstock marketplaces metadata is tuned
// for: each platform carries a settings preset applied when it is selected and
// a block of platform-specific phrasing rules injected into the generator
// instruction.
package platform
