package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldIndex(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"handler.go", true},
		{"src/backend/access/index.c", true},
		{"config/settings.yaml", true},
		{"locale/messages.po", false},
		{"README.md", false},
		{"docs/LICENSE", false},
		{"CHANGELOG.txt", false},
		{"vendor/github.com/x/y.go", false},
		{"web/node_modules/react/index.js", false},
		{"dist/app.js", false},
		{"out/main.o", false},
		{".git/config", false},
		{"static/app.min.js", false},
		{"api/service.pb.go", false},
		{"package-lock.json", false},
		{"go.sum", false},
		{"Cargo.lock", false},
		{"Makefile", false},
		{"rules.mk", false},
		{"", false},
		{"readmeparser.go", true},
		{"src/history.go", true},
		{"store/history_store.go", true},
		{"changes_handler.py", true},
		{"notice_service.go", true},
		{"app/authors_controller.rb", true},
		{"HISTORY.md", false},
		{"NOTICE", false},
		{"LICENSE-MIT", false},
		{"CONTRIBUTING.rst", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldIndex(tt.path))
		})
	}
}

func TestIsSourceCode(t *testing.T) {
	assert.True(t, IsSourceCode("handler.go", ""))
	assert.True(t, IsSourceCode("PAYMENT.TAL", ""))
	assert.True(t, IsSourceCode("x.unknown", "cobol"))
	assert.False(t, IsSourceCode("settings.yaml", ""))
	assert.False(t, IsSourceCode("notes.md", ""))
	assert.False(t, IsSourceCode("handler.go", "markdown"), "explicit language wins")
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "go", DetectLanguage("a/b.go"))
	assert.Equal(t, "cobol", DetectLanguage("PAYROLL.CBL"))
	assert.Equal(t, "typescript", DetectLanguage("ui/app.tsx"))
	assert.Equal(t, "text", DetectLanguage("noext"))
}
