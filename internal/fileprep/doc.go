// Package fileprep turns queued files into generator payloads and display
// previews.
//
// Raster images and videos become inline base64 parts tagged with their real
// MIME type. EPS vectors become a bounded text excerpt of the PostScript
// source, and their embedded Illustrator thumbnail (if any) is decoded for the
// preview. Preview extraction never fails loudly: malformed input simply
// yields no preview.
package fileprep
