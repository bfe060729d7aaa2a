package types

import (
	"errors"
	"strings"
)

// SymbolKind represents the kind of an extracted symbol
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindProcedure SymbolKind = "procedure"
	KindClass     SymbolKind = "class"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
	KindField     SymbolKind = "field"
	KindParameter SymbolKind = "parameter"
)

// IsCallable reports whether symbols of this kind have a body that can call other symbols
func (k SymbolKind) IsCallable() bool {
	switch k {
	case KindFunction, KindMethod, KindProcedure, KindClass:
		return true
	}
	return false
}

// Valid reports whether k is one of the known kinds
func (k SymbolKind) Valid() bool {
	switch k {
	case KindFunction, KindMethod, KindProcedure, KindClass,
		KindVariable, KindConstant, KindField, KindParameter:
		return true
	}
	return false
}

// Symbol is a named program entity extracted from a file by heuristic scanning.
// A symbol is identified by (Name, File); a file defines a given name at most once.
type Symbol struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	File      string     `json:"file"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line,omitempty"` // 0 when unknown
	Scope     string     `json:"scope,omitempty"`    // enclosing callable, empty at file level
	Signature string     `json:"signature,omitempty"`
	Summary   string     `json:"summary,omitempty"`
}

// Key returns the stable identity of the symbol
func (s *Symbol) Key() string {
	return SymbolKey(s.File, s.Name)
}

// SymbolKey builds the identity key for a symbol name defined in file
func SymbolKey(file, name string) string {
	return file + "#" + name
}

// SplitSymbolKey is the inverse of SymbolKey
func SplitSymbolKey(key string) (file, name string, ok bool) {
	i := strings.LastIndexByte(key, '#')
	if i < 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// LastLine returns EndLine, or StartLine when the end is unknown
func (s *Symbol) LastLine() int {
	if s.EndLine < s.StartLine {
		return s.StartLine
	}
	return s.EndLine
}

// Contains reports whether line falls inside the symbol's span
func (s *Symbol) Contains(line int) bool {
	return line >= s.StartLine && line <= s.LastLine()
}

// SearchText is the text indexed for keyword search over the symbol
func (s *Symbol) SearchText() string {
	var b strings.Builder
	b.WriteString(s.Name)
	if s.Signature != "" {
		b.WriteByte(' ')
		b.WriteString(s.Signature)
	}
	b.WriteByte(' ')
	b.WriteString(string(s.Kind))
	if s.Summary != "" {
		b.WriteByte(' ')
		b.WriteString(s.Summary)
	}
	return b.String()
}

// Validate performs validation of the symbol
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}
	if !s.Kind.Valid() {
		return errors.New("invalid symbol kind")
	}
	if s.File == "" {
		return errors.New("symbol file is required")
	}
	if s.StartLine <= 0 {
		return errors.New("invalid position: start line must be positive")
	}
	if s.EndLine != 0 && s.EndLine < s.StartLine {
		return errors.New("invalid position: start line must be before or equal to end line")
	}
	return nil
}
