package test

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Packages whose own tests import this package must never be imported here.
var forbiddenImports = []string{
	"github.com/polkiloo/snackbar/internal/usecase",
	"github.com/polkiloo/snackbar/internal/idempotency",
	"github.com/polkiloo/snackbar/internal/queue",
	"github.com/polkiloo/snackbar/internal/numbering",
	"github.com/polkiloo/snackbar/internal/app",
	"github.com/polkiloo/snackbar/internal/worker",
	"github.com/polkiloo/snackbar/internal/di",
	"github.com/polkiloo/snackbar/internal/server/http/middleware",
	"github.com/polkiloo/snackbar/internal/server/http/handlers",
}

func TestHelpersStayBelowUseCases(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, imp := range f.Imports {
			path, _ := strconv.Unquote(imp.Path.Value)
			for _, forbidden := range forbiddenImports {
				if path == forbidden {
					t.Fatalf("%s imports %s, which cycles with that package's tests", name, path)
				}
			}
		}
	}
}
