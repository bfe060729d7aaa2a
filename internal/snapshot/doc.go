// Package snapshot holds one immutable, fully built generation of the index.
//
// A Snapshot bundles every structure a build produces: file records, symbols,
// the call graph, the three trigram spaces, the inverted keyword index, the
// learned domain knowledge and the derived lookup tables (case-insensitive
// exact-name index, per-file symbol lists and the directory hierarchy).
//
// Snapshots are never mutated after New returns. Readers may share one freely
// across goroutines; a rebuild produces a new Snapshot that the owning handle
// publishes atomically, so in-flight searches keep reading the generation they
// started with.
package snapshot
