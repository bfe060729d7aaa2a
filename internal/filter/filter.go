// Package filter decides which files take part in search and which of them
// count as source code.
package filter

import (
	"path"
	"strings"
)

// excludedExtensions are never indexed: translations, build-system files,
// generated or bundled artifacts and lockfiles.
var excludedExtensions = map[string]bool{
	// translation / localization
	".po": true, ".pot": true, ".mo": true, ".xliff": true, ".xlf": true,
	".resx": true, ".strings": true, ".stringsdict": true, ".arb": true, ".ftl": true,
	// build system
	".mk": true, ".cmake": true, ".gradle": true, ".bazel": true, ".bzl": true, ".ninja": true,
	// generated / compiled / bundled
	".map": true, ".pyc": true, ".class": true, ".o": true, ".a": true, ".so": true,
	".dll": true, ".exe": true, ".wasm": true, ".jar": true,
	// lockfiles
	".lock": true, ".lockb": true,
}

// excludedSuffixes catch minified and generated artifacts that share an extension with real code
var excludedSuffixes = []string{
	".min.js", ".min.css", ".bundle.js", ".chunk.js", ".pb.go", ".pb.cc", ".pb.h",
	"_pb2.py", ".generated.cs", ".designer.cs", ".g.dart",
}

// excludedNames are exact base names (lowercased) that are never indexed
var excludedNames = map[string]bool{
	"package-lock.json": true, "npm-shrinkwrap.json": true, "pnpm-lock.yaml": true,
	"yarn.lock": true, "go.sum": true, "cargo.lock": true, "poetry.lock": true,
	"gemfile.lock": true, "composer.lock": true, "pipfile.lock": true,
	"makefile": true, "gnumakefile": true, "cmakelists.txt": true, "build.gradle": true,
	"pom.xml": true, "build.xml": true, "meson.build": true, "sconstruct": true,
}

// excludedNamePrefixes are documentation boilerplate names (README, LICENSE, ...).
// They only apply to files that are not source code, so history.go is kept.
var excludedNamePrefixes = []string{
	"readme", "license", "licence", "changelog", "changes", "contributing",
	"copying", "authors", "notice", "code_of_conduct", "history",
}

// excludedDirs are directory names that exclude everything beneath them
var excludedDirs = map[string]bool{
	"vendor": true, "node_modules": true, "build": true, "dist": true, "out": true,
	"target": true, "bin": true, "obj": true, "generated": true, "__pycache__": true,
	".git": true, ".svn": true, ".hg": true, ".bzr": true, "cvs": true,
	"bower_components": true, ".venv": true, "venv": true,
}

// sourceLanguages is the allow-list of language tags that count as source code
var sourceLanguages = map[string]bool{
	"go": true, "c": true, "cpp": true, "csharp": true, "java": true, "kotlin": true,
	"scala": true, "python": true, "javascript": true, "typescript": true, "rust": true,
	"ruby": true, "php": true, "swift": true, "objc": true, "shell": true, "perl": true,
	"lua": true, "tal": true, "cobol": true, "pli": true, "fortran": true, "pascal": true,
	"ada": true, "sql": true, "haskell": true, "erlang": true, "elixir": true, "dart": true,
	"r": true, "groovy": true, "vb": true, "asm": true, "clojure": true, "zig": true,
}

// ShouldIndex reports whether the file at p participates in search at all.
// p is slash separated and relative to the workspace root.
func ShouldIndex(p string) bool {
	if p == "" {
		return false
	}
	clean := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	dir, base := path.Split(clean)
	for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
		if excludedDirs[strings.ToLower(seg)] {
			return false
		}
	}

	lower := strings.ToLower(base)
	if excludedNames[lower] {
		return false
	}
	if isBoilerplateDoc(lower) {
		return false
	}
	if excludedExtensions[path.Ext(lower)] {
		return false
	}
	for _, suffix := range excludedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	return true
}

// isBoilerplateDoc matches README, LICENSE-MIT, CHANGELOG.md and friends.
// Names in a source language never match.
func isBoilerplateDoc(lower string) bool {
	if sourceLanguages[DetectLanguage(lower)] {
		return false
	}
	for _, prefix := range excludedNamePrefixes {
		if lower == prefix || strings.HasPrefix(lower, prefix+".") || strings.HasPrefix(lower, prefix+"-") || strings.HasPrefix(lower, prefix+"_") {
			return true
		}
	}
	return false
}

// IsSourceCode reports whether a file counts as source code for ranking and
// body indexing. An explicit language tag wins; otherwise it is detected from p.
func IsSourceCode(p, language string) bool {
	if language == "" {
		language = DetectLanguage(p)
	}
	return sourceLanguages[strings.ToLower(language)]
}

// IsExcludedDir reports whether a directory name is skipped while walking a tree
func IsExcludedDir(name string) bool {
	return excludedDirs[strings.ToLower(name)]
}
