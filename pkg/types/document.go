package types

import (
	"fmt"
	"strings"
)

// DocKind discriminates the document classes stored in the inverted index
type DocKind int

const (
	DocFile DocKind = iota
	DocSymbol
	DocSummary
)

// String returns the prefix used in the textual form of a reference
func (k DocKind) String() string {
	switch k {
	case DocFile:
		return "file"
	case DocSymbol:
		return "symbol"
	case DocSummary:
		return "summary"
	default:
		return fmt.Sprintf("DocKind(%d)", int(k))
	}
}

// DocumentRef is one of File(path), Symbol(key) or Summary(key).
// Consumers switch on Kind; Key holds the path for files and the symbol key otherwise.
type DocumentRef struct {
	Kind DocKind
	Key  string
}

// FileDoc references a whole file body
func FileDoc(path string) DocumentRef { return DocumentRef{Kind: DocFile, Key: path} }

// SymbolDoc references a symbol's search text
func SymbolDoc(key string) DocumentRef { return DocumentRef{Kind: DocSymbol, Key: key} }

// SummaryDoc references a callable symbol's summary
func SummaryDoc(key string) DocumentRef { return DocumentRef{Kind: DocSummary, Key: key} }

// String renders the reference as file:<path>, symbol:<key> or summary:<key>
func (r DocumentRef) String() string {
	return r.Kind.String() + ":" + r.Key
}

// MarshalText implements encoding.TextMarshaler so references can key JSON maps
func (r DocumentRef) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *DocumentRef) UnmarshalText(text []byte) error {
	ref, err := ParseDocumentRef(string(text))
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// ParseDocumentRef parses the textual form produced by String
func ParseDocumentRef(s string) (DocumentRef, error) {
	prefix, key, ok := strings.Cut(s, ":")
	if !ok {
		return DocumentRef{}, fmt.Errorf("malformed document reference %q", s)
	}
	switch prefix {
	case "file":
		return FileDoc(key), nil
	case "symbol":
		return SymbolDoc(key), nil
	case "summary":
		return SummaryDoc(key), nil
	}
	return DocumentRef{}, fmt.Errorf("unknown document kind %q", prefix)
}

// DocMeta is the small record carried with each posting for result materialization
type DocMeta struct {
	Name   string     `json:"name"`
	File   string     `json:"file"`
	Kind   SymbolKind `json:"kind,omitempty"`
	Weight float64    `json:"weight,omitempty"` // externally supplied relevance, 0 means none
}
