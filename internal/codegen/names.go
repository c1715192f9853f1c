package codegen

import (
	"fmt"
	"go/token"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/rulegen/internal/ir"
)

// Output layout roots.
const (
	rulesRoot = "rules"
	unitsRoot = "units"
)

// snakeCase converts a free-form name into a lower snake_case file stem.
// Word boundaries are non alphanumeric runs and lower-to-upper transitions,
// so "Check age" and "CheckAge" both become "check_age".
func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	pendingSep := false

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSep = b.Len() > 0
			continue
		}
		if unicode.IsUpper(r) && i > 0 && b.Len() > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				pendingSep = true
			}
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return cases.Lower(language.Und).String(b.String())
}

// camelCase joins the words of a snake_case stem with their first letter
// upper-cased: "check_age" -> "CheckAge".
func camelCase(stem string) string {
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, word := range strings.Split(stem, "_") {
		b.WriteString(title.String(word))
	}
	return b.String()
}

// goPackageName derives a Go package clause from the last segment of a
// dotted or slash-separated name.
func goPackageName(name string) string {
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		name = name[i+1:]
	}
	ident := strings.ReplaceAll(snakeCase(name), "_", "")
	if ident == "" || !unicode.IsLetter([]rune(ident)[0]) {
		ident = "p" + ident
	}
	if token.IsKeyword(ident) || ident == "main" {
		ident += "_"
	}
	return ident
}

// Trailing file name segments that the go tool reads as build constraints.
var (
	knownOS = map[string]bool{
		"aix": true, "android": true, "darwin": true, "dragonfly": true,
		"freebsd": true, "hurd": true, "illumos": true, "ios": true,
		"js": true, "linux": true, "nacl": true, "netbsd": true,
		"openbsd": true, "plan9": true, "solaris": true, "wasip1": true,
		"windows": true, "zos": true,
	}
	knownArch = map[string]bool{
		"386": true, "amd64": true, "amd64p32": true, "arm": true,
		"armbe": true, "arm64": true, "arm64be": true, "loong64": true,
		"mips": true, "mipsle": true, "mips64": true, "mips64le": true,
		"mips64p32": true, "mips64p32le": true, "ppc": true, "ppc64": true,
		"ppc64le": true, "riscv": true, "riscv64": true, "s390": true,
		"s390x": true, "sparc": true, "sparc64": true, "wasm": true,
	}
)

// buildSafeStem appends "_rule" when the last segment of stem would make the
// go tool treat the file as a test file or restrict it to one GOOS or GOARCH.
func buildSafeStem(stem string) string {
	last := stem[strings.LastIndexByte(stem, '_')+1:]
	if last == "test" || knownOS[last] || knownArch[last] {
		return stem + "_rule"
	}
	return stem
}

// packageDir maps a rule package name onto its output directory:
// "org.acme.pkg1" -> "rules/org/acme/pkg1".
func packageDir(pkg string) string {
	return path.Join(rulesRoot, strings.ReplaceAll(pkg, ".", "/"))
}

// ruleName is the naming result for one rule.
type ruleName struct {
	LogicalName string
	Ident       string // unexported constructor name, e.g. "ruleCheckAge"
}

// ruleNamer assigns collision-free file names and identifiers to the rules
// of a single package.
type ruleNamer struct {
	dir    string
	stems  map[string]bool
	idents map[string]bool
}

// reservedIdents are package-level names used by the package descriptor.
var reservedIdents = []string{"ruleFuncs", "ruleOrder", "ruleIndex"}

func newRuleNamer(pkg string) *ruleNamer {
	n := &ruleNamer{
		dir:    packageDir(pkg),
		stems:  make(map[string]bool),
		idents: make(map[string]bool),
	}
	for _, ident := range reservedIdents {
		n.idents[ident] = true
	}
	return n
}

func (n *ruleNamer) name(rule string) ruleName {
	stem := snakeCase(rule)
	if stem == "" {
		stem = ir.ShortHash(rule)
	}
	stem = buildSafeStem(stem)

	ident := "rule" + camelCase(stem)
	if n.stems[stem] || n.idents[ident] {
		stem = stem + "_" + ir.ShortHash(rule)
		ident = "rule" + camelCase(stem)
	}
	base := stem
	for i := 2; n.stems[stem] || n.idents[ident]; i++ {
		stem = fmt.Sprintf("%s_%d", base, i)
		ident = "rule" + camelCase(stem)
	}

	n.stems[stem] = true
	n.idents[ident] = true
	return ruleName{
		LogicalName: path.Join(n.dir, "rule_"+stem+".go"),
		Ident:       ident,
	}
}

// unitNamer assigns collision-free output directories to rule units.
type unitNamer struct {
	dirs map[string]bool
}

func newUnitNamer() *unitNamer {
	return &unitNamer{dirs: make(map[string]bool)}
}

// dir maps a unit name onto its output directory:
// "MyUnit" -> "units/my_unit", "org.acme.Flow" -> "units/org/acme/flow".
func (n *unitNamer) dir(unit string) string {
	segments := strings.Split(unit, ".")
	for i, s := range segments {
		segments[i] = snakeCase(s)
		if segments[i] == "" {
			segments[i] = ir.ShortHash(s)
		}
	}
	dir := path.Join(append([]string{unitsRoot}, segments...)...)
	if n.dirs[dir] {
		dir = dir + "_" + ir.ShortHash(unit)
	}
	n.dirs[dir] = true
	return dir
}
