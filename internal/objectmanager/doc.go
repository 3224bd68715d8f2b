// Package objectmanager resolves named process singletons on demand.
//
// Ownership boundary:
// - object registration and dependency declarations
// - lazy construction in dependency order
// - cached instance lifecycle (discard and close)
package objectmanager
