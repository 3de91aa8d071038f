// Package logs tails the stockmeta log file with bounded memory.
//
// A negative offset returns the last N lines; a non-negative offset reads
// forward from that byte position. Follow mode polls until new lines arrive
// or the wait elapses, which is what `stockmeta logs --follow` loops on.
package logs
