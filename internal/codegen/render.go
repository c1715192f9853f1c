package codegen

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"strconv"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("codegen").
		Funcs(template.FuncMap{"quote": strconv.Quote}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// Template names.
const (
	tmplRule     = "rule.go.tmpl"
	tmplPackage  = "package.go.tmpl"
	tmplUnit     = "unit.go.tmpl"
	tmplInstance = "instance.go.tmpl"
	tmplModel    = "model.go.tmpl"
	tmplRegistry = "registry.go.tmpl"
)

type ruleData struct {
	Name    string
	Package string
	Unit    string
	Source  string // base name of the source file
	Line    int
	Body    string
	Ident   string
	File    string
}

type ruleFileData struct {
	Version   string
	GoPackage string
	Rule      ruleData
}

type packageData struct {
	Version   string
	GoPackage string
	Name      string
	Mode      string
	HotReload bool
	Units     []string
	Rules     []ruleData
}

type unitData struct {
	Version   string
	GoPackage string
	Name      string
	Dir       string
	Packages  []string
	Rules     []ruleData
}

type registryData struct {
	Version string
	Units   []unitData
}

// packageMetadata is the YAML document emitted per package.
type packageMetadata struct {
	Package   string         `yaml:"package"`
	GoPackage string         `yaml:"go_package"`
	Mode      string         `yaml:"mode"`
	Generator string         `yaml:"generator"`
	Schema    string         `yaml:"schema"`
	Units     []string       `yaml:"units,omitempty"`
	Sources   []string       `yaml:"sources"`
	Rules     []ruleMetadata `yaml:"rules"`
}

type ruleMetadata struct {
	Name   string `yaml:"name"`
	File   string `yaml:"file"`
	Unit   string `yaml:"unit,omitempty"`
	Source string `yaml:"source"`
	Line   int    `yaml:"line"`
}

// renderGo executes a Go source template and gofmts the result.
func renderGo(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting %s: %w", name, err)
	}
	return out, nil
}

// renderYAML encodes v with two-space indentation.
func renderYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return buf.Bytes(), nil
}
