package compiler

import (
	"regexp"
	"strings"

	"github.com/roach88/rulegen/internal/ir"
)

// ParsedSource is the structural inventory of one source artifact.
type ParsedSource struct {
	Location string
	Package  string // declared package, "" when the source declares none
	Unit     string // declared rule unit, "" when none
	Rules    []ParsedRule
}

// ParsedRule is one rule boundary found in a source.
type ParsedRule struct {
	Name string
	Line int
	Body string
}

var qualifiedNameRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// ValidPackageName reports whether name is a dotted identifier such as "com.acme.rules".
func ValidPackageName(name string) bool {
	return qualifiedNameRE.MatchString(name)
}

type drlState int

const (
	drlTop drlState = iota
	drlRule
	drlBlock    // query ... end, declare ... end
	drlFunction // function ... { ... }
)

// ParseRuleText extracts package, unit and rule boundaries from rule text.
// Rule bodies are captured verbatim and never interpreted.
func ParseRuleText(src ir.SourceArtifact) (*ParsedSource, error) {
	text, err := stripComments(src.Location, string(src.Content))
	if err != nil {
		return nil, err
	}

	ps := &ParsedSource{Location: src.Location}

	var (
		state      = drlTop
		current    ParsedRule
		body       []string
		blockKind  string
		blockLine  int
		braceDepth int
		sawBrace   bool
	)

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "#") {
			line = ""
		}
		kw, rest := firstWord(line)

		switch state {
		case drlRule:
			if kw == "end" {
				current.Body = strings.TrimSpace(strings.Join(body, "\n"))
				ps.Rules = append(ps.Rules, current)
				state = drlTop
				continue
			}
			body = append(body, strings.TrimRight(raw, " \t\r"))

		case drlBlock:
			if kw == "end" {
				state = drlTop
			}

		case drlFunction:
			braceDepth += strings.Count(line, "{") - strings.Count(line, "}")
			if strings.Contains(line, "{") {
				sawBrace = true
			}
			if sawBrace && braceDepth <= 0 {
				state = drlTop
			}

		case drlTop:
			switch kw {
			case "":
				continue

			case "package":
				name, err := declaredName(src.Location, lineNo, "package", rest)
				if err != nil {
					return nil, err
				}
				if ps.Package != "" {
					return nil, ir.Errorf(ir.ErrMalformedSource, src.Location, lineNo,
						"duplicate package declaration %q (already declared %q)", name, ps.Package)
				}
				ps.Package = name

			case "unit":
				name, err := declaredName(src.Location, lineNo, "unit", rest)
				if err != nil {
					return nil, err
				}
				if ps.Unit != "" {
					return nil, ir.Errorf(ir.ErrMalformedSource, src.Location, lineNo,
						"duplicate unit declaration %q (already declared %q)", name, ps.Unit)
				}
				ps.Unit = name

			case "rule":
				name, tail, err := ruleName(src.Location, lineNo, rest)
				if err != nil {
					return nil, err
				}
				current = ParsedRule{Name: name, Line: lineNo}
				body = body[:0]
				if lastWord(tail) == "end" {
					current.Body = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(tail), "end"))
					ps.Rules = append(ps.Rules, current)
					continue
				}
				if tail != "" {
					body = append(body, tail)
				}
				state = drlRule

			case "query", "declare":
				if lastWord(rest) == "end" {
					continue
				}
				state = drlBlock
				blockKind = kw
				blockLine = lineNo

			case "function":
				state = drlFunction
				blockLine = lineNo
				braceDepth = strings.Count(line, "{") - strings.Count(line, "}")
				sawBrace = strings.Contains(line, "{")
				if sawBrace && braceDepth <= 0 {
					state = drlTop
				}
			}
		}
	}

	switch state {
	case drlRule:
		return nil, ir.Errorf(ir.ErrMalformedSource, src.Location, current.Line,
			"rule %q is not terminated by end", current.Name)
	case drlBlock:
		return nil, ir.Errorf(ir.ErrMalformedSource, src.Location, blockLine,
			"%s block is not terminated by end", blockKind)
	case drlFunction:
		return nil, ir.Errorf(ir.ErrMalformedSource, src.Location, blockLine,
			"function body is not closed")
	}

	return ps, nil
}

// declaredName validates the operand of a package or unit declaration.
func declaredName(location string, line int, keyword, rest string) (string, error) {
	name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ";"))
	if name == "" {
		return "", ir.Errorf(ir.ErrMalformedSource, location, line, "%s declaration without a name", keyword)
	}
	if !qualifiedNameRE.MatchString(name) {
		return "", ir.Errorf(ir.ErrMalformedSource, location, line, "invalid %s name %q", keyword, name)
	}
	return name, nil
}

// ruleName parses `"name"`, `'name'` or a bare identifier after the rule
// keyword and returns the remainder of the line.
func ruleName(location string, line int, rest string) (string, string, error) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", "", ir.Errorf(ir.ErrMalformedSource, location, line, "rule declaration without a name")
	}

	if q := rest[0]; q == '"' || q == '\'' {
		for i := 1; i < len(rest); i++ {
			switch rest[i] {
			case '\\':
				i++
			case q:
				name := unescape(rest[1:i])
				if strings.TrimSpace(name) == "" {
					return "", "", ir.Errorf(ir.ErrMalformedSource, location, line, "rule declaration with an empty name")
				}
				return name, strings.TrimSpace(rest[i+1:]), nil
			}
		}
		return "", "", ir.Errorf(ir.ErrMalformedSource, location, line, "unterminated rule name %s", rest)
	}

	name, tail := firstWord(rest)
	return name, tail, nil
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// firstWord splits line at the first whitespace. A trailing ';' is not part
// of the keyword, so "end;" reads as "end".
func firstWord(line string) (string, string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return strings.TrimSuffix(line, ";"), ""
	}
	return strings.TrimSuffix(line[:idx], ";"), strings.TrimSpace(line[idx+1:])
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimSuffix(fields[len(fields)-1], ";")
}

// stripComments blanks out //, /* */ comments while keeping line structure
// and string literals intact.
func stripComments(location, src string) (string, error) {
	var (
		b          strings.Builder
		line       = 1
		blockStart int
		inBlock    bool
		inLine     bool
		quote      byte
	)
	b.Grow(len(src))

	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '\n' {
			line++
			inLine = false
			quote = 0
			b.WriteByte(c)
			continue
		}

		switch {
		case inLine:
			b.WriteByte(' ')
		case inBlock:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				inBlock = false
				b.WriteString("  ")
				i++
				continue
			}
			b.WriteByte(' ')
		case quote != 0:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(src) && src[i+1] != '\n' {
				b.WriteByte(src[i+1])
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
			b.WriteByte(c)
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			inLine = true
			b.WriteString("  ")
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			inBlock = true
			blockStart = line
			b.WriteString("  ")
			i++
		default:
			b.WriteByte(c)
		}
	}

	if inBlock {
		return "", ir.Errorf(ir.ErrMalformedSource, location, blockStart, "unterminated block comment")
	}
	return b.String(), nil
}
