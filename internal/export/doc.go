// Package export renders completed queue items into downloadable artifacts:
// a per-platform metadata CSV, a prompt text file, EPS files with an embedded
// XMP packet, and the copy-all text for a single result.
package export
