package parser

import (
	"regexp"
	"strings"

	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// bodyStyle selects the end-of-body heuristic for a language family
type bodyStyle int

const (
	// braceBody counts { and } from the declaration line
	braceBody bodyStyle = iota
	// indentBody runs while lines are indented deeper than the declaration
	indentBody
	// beginEndBody counts BEGIN / END keywords
	beginEndBody
	// nextDeclBody runs until the next callable declaration
	nextDeclBody
)

// declRule recognizes one kind of declaration on a single line
type declRule struct {
	re        *regexp.Regexp
	nameGroup int
	kind      types.SymbolKind
	// maxIndent bounds the declaration's leading whitespace; -1 means unbounded
	maxIndent int
}

// family is a group of languages that share declaration keywords and body shape
type family struct {
	name            string
	rules           []declRule
	body            bodyStyle
	commentPrefixes []string
	callPatterns    []*regexp.Regexp
	// endKeyword closes an indent body when it appears at the declaration's indent (Ruby's "end")
	endKeyword string
	// lineComments start a comment that runs to end of line
	lineComments []string
	// keepStrings leaves quoted literals in place for call matching (COBOL CALL 'PROG')
	keepStrings     bool
	caseInsensitive bool
	// skipNames are lowercase declaration names ignored for this family only
	skipNames map[string]bool
}

func rule(pattern string, group int, kind types.SymbolKind) declRule {
	return declRule{re: regexp.MustCompile(pattern), nameGroup: group, kind: kind, maxIndent: -1}
}

func topLevel(pattern string, group int, kind types.SymbolKind) declRule {
	r := rule(pattern, group, kind)
	r.maxIndent = 0
	return r
}

var genericCall = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

var families = map[string]*family{
	"go": {
		name: "go",
		rules: []declRule{
			topLevel(`^func\s+\([^)]*\)\s*([A-Za-z_]\w*)\s*[\[(]`, 1, types.KindMethod),
			topLevel(`^func\s+([A-Za-z_]\w*)\s*[\[(]`, 1, types.KindFunction),
			topLevel(`^type\s+([A-Za-z_]\w*)(?:\[[^\]]*\])?\s+(?:struct|interface)\b`, 1, types.KindClass),
			topLevel(`^const\s+([A-Za-z_]\w*)\b`, 1, types.KindConstant),
			topLevel(`^var\s+([A-Za-z_]\w*)\b`, 1, types.KindVariable),
		},
		body:            braceBody,
		commentPrefixes: []string{"//"},
		lineComments:    []string{"//"},
		callPatterns:    []*regexp.Regexp{genericCall},
	},
	"c": {
		name: "c",
		rules: []declRule{
			topLevel(`^#define\s+([A-Za-z_]\w*)\b`, 1, types.KindConstant),
			topLevel(`^(?:typedef\s+)?(?:struct|union|enum|class|namespace)\s+([A-Za-z_]\w*)\s*(?:[:{]|$)`, 1, types.KindClass),
			topLevel(`^[A-Za-z_][\w\s\*&:<>,~]*?[\s\*&]([A-Za-z_][\w:~]*)\s*\([^;]*$`, 1, types.KindFunction),
			topLevel(`^(?:static\s+|extern\s+)?(?:const\s+)?(?:unsigned\s+|signed\s+)?[A-Za-z_]\w*\s+\**([A-Za-z_]\w*)\s*(?:=|;|\[)`, 1, types.KindVariable),
		},
		body:            braceBody,
		commentPrefixes: []string{"//", "/*", "*"},
		lineComments:    []string{"//"},
		callPatterns:    []*regexp.Regexp{genericCall},
	},
	"java": {
		name: "java",
		rules: []declRule{
			rule(`^\s*(?:(?:public|private|protected|internal|abstract|final|static|sealed|partial|data|open)\s+)*(?:class|interface|enum|record|object|struct|trait)\s+([A-Za-z_]\w*)`, 1, types.KindClass),
			rule(`^\s*(?:(?:public|private|protected|internal|static|final|abstract|override|open)\s+)*(?:function|func)\s+([A-Za-z_]\w*)\s*[<(]`, 1, types.KindFunction),
			rule(`^\s*(?:(?:public|private|protected|internal|static|final|abstract|synchronized|override|virtual|async|native)\s+)*(?:<[^>]*>\s+)?([A-Za-z_][\w<>\[\],.?]*)\s+([A-Za-z_]\w*)\s*\([^;]*$`, 2, types.KindMethod),
			rule(`^\s*(?:(?:public|private|protected|internal|override|suspend|inline)\s+)*fun\s+(?:<[^>]*>\s+)?(?:[\w.]+\.)?([A-Za-z_]\w*)\s*\(`, 1, types.KindFunction),
			rule(`^\s*def\s+([A-Za-z_]\w*)\s*[\[(:=]`, 1, types.KindFunction),
			rule(`^\s*(?:(?:public|private|protected|internal)\s+)?static\s+final\s+[\w<>\[\]]+\s+([A-Z_][A-Z0-9_]*)\s*=`, 1, types.KindConstant),
		},
		body:            braceBody,
		commentPrefixes: []string{"//", "/*", "*"},
		lineComments:    []string{"//"},
		callPatterns:    []*regexp.Regexp{genericCall},
	},
	"javascript": {
		name: "javascript",
		rules: []declRule{
			rule(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`, 1, types.KindFunction),
			rule(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`, 1, types.KindClass),
			rule(`^\s*(?:export\s+)?interface\s+([A-Za-z_$][\w$]*)`, 1, types.KindClass),
			rule(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=]+)?=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*(?::[^=]+)?=>|[A-Za-z_$][\w$]*\s*=>)`, 1, types.KindFunction),
			rule(`^\s+(?:(?:public|private|protected|static|async|readonly|override)\s+)*([A-Za-z_$][\w$]*)\s*\([^()]*\)\s*(?::\s*[^{]+)?\{\s*$`, 1, types.KindMethod),
			topLevel(`^(?:export\s+)?const\s+([A-Z_][A-Z0-9_]*)\s*(?::[^=]+)?=`, 1, types.KindConstant),
			topLevel(`^(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=]+)?=`, 1, types.KindVariable),
		},
		body:            braceBody,
		commentPrefixes: []string{"//", "/*", "*"},
		lineComments:    []string{"//"},
		callPatterns:    []*regexp.Regexp{genericCall},
	},
	"rust": {
		name: "rust",
		rules: []declRule{
			rule(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?(?:extern\s+"[^"]*"\s+)?fn\s+([A-Za-z_]\w*)`, 1, types.KindFunction),
			rule(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|union)\s+([A-Za-z_]\w*)`, 1, types.KindClass),
			rule(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const|static)\s+(?:mut\s+)?([A-Za-z_]\w*)\s*:`, 1, types.KindConstant),
		},
		body:            braceBody,
		commentPrefixes: []string{"//", "/*", "*"},
		lineComments:    []string{"//"},
		callPatterns:    []*regexp.Regexp{genericCall, regexp.MustCompile(`([A-Za-z_]\w*)!\s*\(`)},
	},
	"python": {
		name: "python",
		rules: []declRule{
			rule(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`, 1, types.KindFunction),
			rule(`^\s*class\s+([A-Za-z_]\w*)`, 1, types.KindClass),
			topLevel(`^([A-Z_][A-Z0-9_]*)\s*(?::[^=]*)?=[^=]`, 1, types.KindConstant),
			topLevel(`^([A-Za-z_]\w*)\s*(?::[^=]*)?=[^=]`, 1, types.KindVariable),
		},
		body:            indentBody,
		commentPrefixes: []string{"#"},
		lineComments:    []string{"#"},
		callPatterns:    []*regexp.Regexp{genericCall},
	},
	"ruby": {
		name: "ruby",
		rules: []declRule{
			rule(`^\s*def\s+(?:self\.)?([A-Za-z_]\w*[?!]?)`, 1, types.KindFunction),
			rule(`^\s*(?:class|module)\s+([A-Z]\w*)`, 1, types.KindClass),
			rule(`^\s*([A-Z][A-Z0-9_]*)\s*=[^=]`, 1, types.KindConstant),
		},
		body:            indentBody,
		endKeyword:      "end",
		commentPrefixes: []string{"#"},
		lineComments:    []string{"#"},
		callPatterns:    []*regexp.Regexp{genericCall},
	},
	"tal": {
		name: "tal",
		rules: []declRule{
			rule(`(?i)^\s*(?:(?:INT|STRING|FIXED|REAL|UNSIGNED)(?:\s*\(\s*\d+\s*\))?\s+)?(?:PROC|SUBPROC)\s+([A-Za-z_^][\w^]*)`, 1, types.KindProcedure),
			rule(`(?i)^\s*LITERAL\s+([A-Za-z_^][\w^]*)`, 1, types.KindConstant),
			rule(`(?i)^\s*DEFINE\s+([A-Za-z_^][\w^]*)`, 1, types.KindConstant),
			rule(`(?i)^\s*(?:INT|STRING|FIXED|REAL|UNSIGNED)(?:\s*\(\s*\d+\s*\))?\s+[.*]?([A-Za-z_^][\w^]*)\s*(?:[:=;\[,]|$)`, 1, types.KindVariable),
		},
		body:            beginEndBody,
		commentPrefixes: []string{"!", "--"},
		lineComments:    []string{"!", "--"},
		caseInsensitive: true,
		callPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bCALL\s+([A-Za-z_^][\w^]*)`),
			regexp.MustCompile(`([A-Za-z_^][\w^]*)\s*\(`),
		},
	},
	"cobol": {
		name: "cobol",
		rules: []declRule{
			rule(`(?i)^[ 0-9]{6} ([A-Za-z0-9][A-Za-z0-9-]*)\s+SECTION\s*\.`, 1, types.KindProcedure),
			rule(`^[ 0-9]{6} ([A-Za-z0-9][A-Za-z0-9-]*)\s*\.\s*$`, 1, types.KindProcedure),
			rule(`^\s*(?:0[1-9]|[1-4][0-9]|77)\s+([A-Za-z][A-Za-z0-9-]*)\b`, 1, types.KindVariable),
		},
		body:            nextDeclBody,
		commentPrefixes: []string{"*"},
		lineComments:    []string{"*>"},
		keepStrings:     true,
		caseInsensitive: true,
		skipNames: map[string]bool{
			"working-storage": true, "local-storage": true, "linkage": true, "file": true,
			"screen": true, "report": true, "input-output": true, "configuration": true,
			"communication": true,
		},
		callPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bPERFORM\s+([A-Za-z0-9][A-Za-z0-9-]*)`),
			regexp.MustCompile(`(?i)\bCALL\s+['"]([A-Za-z0-9][\w-]*)['"]`),
		},
	},
	"pli": {
		name: "pli",
		rules: []declRule{
			rule(`(?i)^\s*([A-Za-z_]\w*)\s*:\s*(?:PROC|PROCEDURE)\b`, 1, types.KindProcedure),
			rule(`(?i)^\s*(?:DCL|DECLARE)\s+(?:\d+\s+)?([A-Za-z_]\w*)`, 1, types.KindVariable),
		},
		body:            nextDeclBody,
		commentPrefixes: []string{"/*", "*"},
		caseInsensitive: true,
		callPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bCALL\s+([A-Za-z_]\w*)`),
			genericCall,
		},
	},
	"generic": {
		name: "generic",
		rules: []declRule{
			rule(`(?i)^\s*(?:local\s+|export\s+)?(?:function|func|def|sub|proc|procedure|subroutine|fn)\s+([A-Za-z_][\w.:]*)`, 1, types.KindFunction),
			rule(`(?i)^\s*CREATE\s+(?:OR\s+REPLACE\s+)?(?:FUNCTION|PROCEDURE)\s+([\w.]+)`, 1, types.KindProcedure),
			rule(`^\s*([A-Za-z_][\w-]*)\s*\(\)\s*\{`, 1, types.KindFunction),
		},
		body:            braceBody,
		commentPrefixes: []string{"#", "//", "--", ";"},
		lineComments:    []string{"#", "//"},
		callPatterns:    []*regexp.Regexp{genericCall},
	},
}

var languageFamilies = map[string]string{
	"go": "go",
	"c":  "c", "cpp": "c", "objc": "c",
	"java": "java", "csharp": "java", "kotlin": "java", "scala": "java", "groovy": "java",
	"swift": "java", "dart": "java", "php": "java",
	"javascript": "javascript", "typescript": "javascript",
	"rust":   "rust",
	"python": "python",
	"ruby":   "ruby", "elixir": "ruby",
	"tal":   "tal",
	"cobol": "cobol",
	"pli":   "pli",
}

// familyFor returns the family for a language tag, falling back to the generic one
func familyFor(language string) *family {
	if name, ok := languageFamilies[strings.ToLower(language)]; ok {
		return families[name]
	}
	return families["generic"]
}

// nonCallWords are identifiers that look like calls but are control flow or declarations
var nonCallWords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true, "catch": true,
	"sizeof": true, "typeof": true, "function": true, "func": true, "def": true, "elif": true,
	"else": true, "do": true, "case": true, "when": true, "match": true, "foreach": true,
	"until": true, "unless": true, "lambda": true, "new": true, "delete": true, "throw": true,
	"defined": true, "and": true, "or": true, "not": true, "in": true, "is": true, "with": true,
	"assert": true, "yield": true, "await": true, "fn": true, "proc": true, "subproc": true,
	"begin": true, "end": true, "then": true, "using": true, "synchronized": true,
	"super": true, "this": true, "self": true, "struct": true, "class": true, "interface": true,
	"perform": true, "call": true, "varying": true, "times": true,
	"int": true, "string": true, "fixed": true, "real": true, "unsigned": true,
	"map": true, "chan": true, "make": true, "len": true, "cap": true, "append": true,
	"byte": true, "rune": true, "bool": true, "float64": true, "int64": true, "uint64": true,
	"int32": true, "uint32": true, "error": true, "char": true, "void": true,
}

// nonDeclNames are words a loose declaration rule may capture that are never symbol names
var nonDeclNames = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true, "catch": true,
	"else": true, "new": true, "throw": true, "case": true, "do": true, "try": true,
	"sizeof": true, "exit": true, "goback": true, "continue": true,
	"procedure": true, "division": true, "section": true, "end": true, "stop": true,
	"filler": true, "import": true, "package": true, "from": true, "await": true,
	"elif": true, "with": true, "function": true,
}
