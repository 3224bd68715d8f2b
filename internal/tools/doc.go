// Package tools provides host command execution shared by diagnostics probes.
//
// Ownership boundary:
// - command execution helpers
//
// - host/runtime utility primitives
package tools
