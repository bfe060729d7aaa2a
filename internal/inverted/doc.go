// Package inverted is the keyword index: stemmed term -> documents.
//
// Documents are typed references (types.DocumentRef): whole source file bodies,
// symbol search text (name, signature, kind and summary), and explicit
// summaries of callable symbols. Query ranks one document class at a time; the
// search orchestrator then rescales those scores below the exact and trigram
// strategies with Scale, since keyword hits are the weakest signal.
package inverted
