package compiler_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/kelplang/kelp/internal/filetest"
	"github.com/kelplang/kelp/lang/compiler"
)

var testUpdateCompilerTests = flag.Bool("test.update-compiler-tests", false, "If set, replace expected compiler test results with actual results.")

// TestCompileGolden dumps the Assembly produced for each fixture under
// testdata/in and compares it against the matching golden file under
// testdata/out, using the internal/filetest golden-file helpers.
func TestCompileGolden(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".kelp") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}

			c := compiler.New()
			if err := c.Load(fi.Name(), string(src)); err != nil {
				t.Fatalf("Load: %v", err)
			}
			asm := c.Finish()

			filetest.DiffOutput(t, fi, asm.Dump(), resultDir, testUpdateCompilerTests)
		})
	}
}
