package filter

import (
	"path"
	"strings"
)

var extensionLanguages = map[string]string{
	".go": "go",
	".c":  "c", ".h": "c",
	".cc": "cpp", ".cpp": "cpp", ".cxx": "cpp", ".hpp": "cpp", ".hh": "cpp", ".hxx": "cpp",
	".cs":   "csharp",
	".java": "java", ".kt": "kotlin", ".kts": "kotlin", ".scala": "scala", ".groovy": "groovy",
	".py": "python", ".pyw": "python",
	".js": "javascript", ".jsx": "javascript", ".mjs": "javascript", ".cjs": "javascript",
	".ts": "typescript", ".tsx": "typescript",
	".rs": "rust", ".rb": "ruby", ".php": "php", ".swift": "swift", ".m": "objc", ".mm": "objc",
	".sh": "shell", ".bash": "shell", ".zsh": "shell",
	".pl": "perl", ".pm": "perl", ".lua": "lua",
	".tal": "tal", ".tacl": "tal",
	".cbl": "cobol", ".cob": "cobol", ".cobol": "cobol", ".cpy": "cobol", ".pco": "cobol",
	".pli": "pli", ".pl1": "pli",
	".f": "fortran", ".f90": "fortran", ".for": "fortran",
	".pas": "pascal", ".ada": "ada", ".adb": "ada", ".ads": "ada",
	".sql": "sql", ".hs": "haskell", ".erl": "erlang", ".ex": "elixir", ".exs": "elixir",
	".dart": "dart", ".r": "r", ".vb": "vb", ".asm": "asm", ".s": "asm",
	".clj": "clojure", ".zig": "zig",
	".json": "json", ".yaml": "yaml", ".yml": "yaml", ".xml": "xml", ".toml": "toml",
	".ini": "ini", ".csv": "csv", ".md": "markdown", ".rst": "rst", ".txt": "text",
	".html": "html", ".htm": "html", ".css": "css", ".proto": "protobuf",
}

// DetectLanguage maps a path to a language tag by extension, or "text" when unknown
func DetectLanguage(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}
	return "text"
}
