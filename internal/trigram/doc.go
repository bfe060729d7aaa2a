// Package trigram implements trigram posting spaces for fuzzy and substring search.
//
// A string is normalized (lowercased, non-alphanumerics dropped) and broken into
// its overlapping three-character substrings. Each Index maps trigram to the set
// of locations whose text produced it. The engine keeps three spaces: symbol
// names keyed by symbol key, file names keyed by path, and code lines keyed by
// LineRef.
//
// Lookup intersects the posting sets of every query trigram, smallest set
// first, and stops as soon as the intersection is empty. Every trigram of a
// substring is a trigram of the containing string, so Lookup never misses a
// true substring hit; it may return false positives, which FuzzyScore filters.
package trigram
