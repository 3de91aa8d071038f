// Package services defines shared utilities consumed by the batch pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, batch run IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures from the
//     generator, file preparation, and exporters classify consistently.
//
// Use these helpers when wiring new pipeline code so operational behaviour
// (error handling, observability) stays uniform across packages.
package services
