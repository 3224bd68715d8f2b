// Package environment gathers host, runtime, database and product facts for
// diagnostics and support bundles.
//
// Ownership boundary:
// - operating system identification (release files, sw_vers, uname)
// - Go runtime and bundled module versions
// - database type and server version
// - product identity from configuration
//
// Probes keep no state between calls. A fact that cannot be determined is
// left empty rather than reported as an error.
package environment
