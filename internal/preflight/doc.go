// Package preflight provides readiness checks for the directories and the
// Gemini endpoint that stockmeta depends on.
//
// These checks run in two contexts:
//   - The daemon runs CheckDirectories at startup and logs failures before it
//     accepts work.
//   - The CLI "stockmeta check" command runs RunAll, which adds a live
//     Gemini probe using the stored or configured API key.
package preflight
