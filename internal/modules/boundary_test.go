// Package modules_test verifies module boundary compliance.
// This test ensures modules don't import runtime internals, enforcing clean separation.
package modules_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulePath = "github.com/antoniop-zartis/ap-cartrawler"

// importsOf returns the import paths of the non-test Go files in dir.
func importsOf(t *testing.T, dir string) map[string][]string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join("../..", dir, "*.go"))
	if err != nil {
		t.Fatalf("failed to glob package %s: %v", dir, err)
	}
	if len(matches) == 0 {
		t.Fatalf("no Go files found in %s", dir)
	}

	imports := make(map[string][]string)
	for _, file := range matches {
		// Test files may import anything
		if strings.HasSuffix(file, "_test.go") {
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("failed to read file %s: %v", file, err)
		}
		f, err := parser.ParseFile(token.NewFileSet(), file, content, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("failed to parse file %s: %v", file, err)
		}
		for _, imp := range f.Imports {
			imports[filepath.Base(file)] = append(imports[filepath.Base(file)], strings.Trim(imp.Path.Value, `"`))
		}
	}
	return imports
}

// TestModuleBoundaryCompliance verifies that module packages don't import runtime internals.
// Modules only see offers and their own configuration; wiring them is the job of the
// registry and factory.
func TestModuleBoundaryCompliance(t *testing.T) {
	modulePackages := []string{
		"internal/modules/input",
		"internal/modules/filter",
		"internal/modules/output",
	}

	forbiddenImports := []string{
		modulePath + "/internal/runtime",
		modulePath + "/internal/factory",
		modulePath + "/internal/registry",
		modulePath + "/internal/config",
		modulePath + "/internal/cli",
	}

	for _, pkgPath := range modulePackages {
		t.Run(pkgPath, func(t *testing.T) {
			for file, imports := range importsOf(t, pkgPath) {
				for _, importPath := range imports {
					for _, forbidden := range forbiddenImports {
						if importPath == forbidden {
							t.Errorf("BOUNDARY VIOLATION: %s imports forbidden package %s\n"+
								"Modules must not depend on runtime internals. Use interfaces only.",
								file, forbidden)
						}
					}
				}
			}
		})
	}
}

// TestRuntimeDoesNotBuildModules verifies that the executor receives its modules
// instead of constructing them from configuration.
func TestRuntimeDoesNotBuildModules(t *testing.T) {
	forbidden := []string{
		modulePath + "/internal/factory",
		modulePath + "/internal/registry",
		modulePath + "/internal/config",
	}

	for file, imports := range importsOf(t, "internal/runtime") {
		for _, importPath := range imports {
			for _, f := range forbidden {
				if importPath == f {
					t.Errorf("BOUNDARY VIOLATION: runtime/%s imports %s", file, f)
				}
			}
		}
	}
}
