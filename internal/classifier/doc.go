// Package classifier maps a natural-language query to one of a fixed set of
// intents (call graph, flow trace, file listing, structure lookup, cross
// module, implementation lookup, concept explanation, general) by ordered
// pattern rules, extracts the entities it names, and uses learned domain
// knowledge to expand those entities and suggest relevant modules.
//
// Classification is independent of search; callers use it to choose or tune
// a strategy before searching.
package classifier
