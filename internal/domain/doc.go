// Package domain learns lightweight domain knowledge from corpus structure.
//
// Directories holding at least two files become modules. File-name prefixes
// shared by three or more files are mapped to the module they best overlap.
// Module names are mined for the concepts they abbreviate ("libindex" ->
// "index", "NetHandler" -> "net", "handler"), and summary text contributes
// terms that repeat within a directory. Everything is folded into one cluster
// of related terms per module, with a reverse term -> modules index used by
// the classifier and the search orchestrator to expand queries.
//
// Learn is a pure function; callers replace their Knowledge wholesale.
package domain
