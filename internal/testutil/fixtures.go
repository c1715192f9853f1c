package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// WriteTree materializes files (slash-separated relative path -> content)
// under root, creating directories as needed. Returns root for chaining.
func WriteTree(t testing.TB, root string, files map[string]string) string {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("WriteTree: mkdir %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			t.Fatalf("WriteTree: write %s: %v", path, err)
		}
	}
	return root
}

// DRL renders a minimal rule-text source. pkg and unit may be empty to omit
// the declaration. Each rule gets a trivial when/then body.
//
//	testutil.DRL("com.acme", "", "Check age", "Check name")
func DRL(pkg, unit string, rules ...string) string {
	var b strings.Builder
	if pkg != "" {
		b.WriteString("package " + pkg + ";\n")
	}
	if unit != "" {
		b.WriteString("unit " + unit + ";\n")
	}
	b.WriteString("\n")
	for _, r := range rules {
		b.WriteString("rule \"" + r + "\"\n")
		b.WriteString("when\n")
		b.WriteString("    $p : /persons[ age >= 18 ]\n")
		b.WriteString("then\n")
		b.WriteString("    System.out.println(\"" + r + "\");\n")
		b.WriteString("end\n\n")
	}
	return b.String()
}
