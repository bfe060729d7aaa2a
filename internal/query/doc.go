// Package query turns a raw natural-language query into search terms.
//
// Terms splits the query into identifier-shaped tokens and words and filters
// stop words, keeping the unfiltered terms when nothing else would remain.
// Actions and Expand detect verbs such as "built" or "initializing" and pair
// them with the other terms to guess function names: "how is the index built"
// yields index_build, build_index, indexbuild and buildindex.
package query
