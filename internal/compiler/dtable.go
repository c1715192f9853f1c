package compiler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/roach88/rulegen/internal/ir"
)

// Decision table keywords. Matching is case-insensitive.
const (
	keywordRuleSet   = "RuleSet"
	keywordRuleTable = "RuleTable"
	keywordUnit      = "Unit"
	keywordCondition = "CONDITION"
	keywordAction    = "ACTION"
	keywordName      = "NAME"
)

// headerRows is the number of rows between the keyword row and the first
// rule row: object pattern, code snippet, column label.
const headerRows = 3

var utf8BOM = []byte("\xef\xbb\xbf")

// ParseDecisionTable counts the rules of a spreadsheet decision table.
// CSV sources are read with encoding/csv; .xlsx and legacy .xls workbooks
// are read from their first worksheet.
func ParseDecisionTable(src ir.SourceArtifact) (*ParsedSource, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(src.Location)) {
	case ".xlsx":
		rows, err = readWorkbook(src.Content)
	case ".xls":
		rows, err = readLegacyWorkbook(src.Content)
	default:
		rows, err = readCSV(src.Content)
	}
	if err != nil {
		return nil, ir.WrapError(ir.ErrMalformedSource, src.Location, "reading decision table", err)
	}
	return parseTableRows(src.Location, rows)
}

func readCSV(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func readWorkbook(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}

// readLegacyWorkbook reads the first sheet of a BIFF8 workbook. Row indexes
// are kept so that reported lines match the sheet.
func readLegacyWorkbook(content []byte) (rows [][]string, err error) {
	// The BIFF decoder panics on some truncated records.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("decoding workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb.NumSheets() == 0 {
		return nil, nil
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}

	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func parseTableRows(location string, rows [][]string) (*ParsedSource, error) {
	ps := &ParsedSource{Location: location}

	for i := 0; i < len(rows); i++ {
		col, cell := firstCell(rows[i])
		if col < 0 {
			continue
		}
		lineNo := i + 1

		switch {
		case strings.EqualFold(cell, keywordRuleSet):
			name, err := settingValue(location, lineNo, rows[i], col, "RuleSet")
			if err != nil {
				return nil, err
			}
			if ps.Package != "" && ps.Package != name {
				return nil, ir.Errorf(ir.ErrMalformedSource, location, lineNo,
					"duplicate RuleSet %q (already declared %q)", name, ps.Package)
			}
			ps.Package = name

		case strings.EqualFold(cell, keywordUnit):
			name, err := settingValue(location, lineNo, rows[i], col, "Unit")
			if err != nil {
				return nil, err
			}
			if ps.Unit != "" && ps.Unit != name {
				return nil, ir.Errorf(ir.ErrMalformedSource, location, lineNo,
					"duplicate Unit %q (already declared %q)", name, ps.Unit)
			}
			ps.Unit = name

		case isRuleTable(cell):
			tableName := strings.TrimSpace(cell[len(keywordRuleTable):])
			if tableName == "" {
				return nil, ir.Errorf(ir.ErrMalformedSource, location, lineNo, "RuleTable without a name")
			}
			next, rules, err := parseRuleTable(location, rows, i, col, tableName)
			if err != nil {
				return nil, err
			}
			ps.Rules = append(ps.Rules, rules...)
			i = next - 1
		}
	}

	return ps, nil
}

// parseRuleTable reads the table opened at rows[start] and returns the index
// of the first row after it.
func parseRuleTable(location string, rows [][]string, start, col int, tableName string) (int, []ParsedRule, error) {
	kwRow := start + 1
	if kwRow >= len(rows) {
		return 0, nil, ir.Errorf(ir.ErrMalformedSource, location, start+1,
			"RuleTable %q has no keyword row", tableName)
	}

	var (
		columns []int
		nameCol = -1
		valid   bool
	)
	for j := col; j < len(rows[kwRow]); j++ {
		kw := strings.ToUpper(strings.TrimSpace(rows[kwRow][j]))
		if kw == "" {
			continue
		}
		columns = append(columns, j)
		switch {
		case strings.HasPrefix(kw, keywordCondition), strings.HasPrefix(kw, keywordAction):
			valid = true
		case kw == keywordName:
			nameCol = j
		}
	}
	if !valid {
		return 0, nil, ir.Errorf(ir.ErrMalformedSource, location, kwRow+1,
			"RuleTable %q has no CONDITION or ACTION column", tableName)
	}

	var rules []ParsedRule
	r := kwRow + 1 + headerRows
	for ; r < len(rows); r++ {
		row := rows[r]
		if _, cell := firstCell(row); isRuleTable(cell) {
			break
		}
		values := cellsAt(row, columns)
		if strings.TrimSpace(strings.Join(values, "")) == "" {
			break
		}

		name := fmt.Sprintf("%s_%d", tableName, r+1)
		if nameCol >= 0 && nameCol < len(row) && strings.TrimSpace(row[nameCol]) != "" {
			name = strings.TrimSpace(row[nameCol])
		}
		rules = append(rules, ParsedRule{
			Name: name,
			Line: r + 1,
			Body: strings.Join(values, " | "),
		})
	}

	return r, rules, nil
}

func settingValue(location string, line int, row []string, col int, keyword string) (string, error) {
	value := ""
	for j := col + 1; j < len(row); j++ {
		if v := strings.TrimSpace(row[j]); v != "" {
			value = v
			break
		}
	}
	if value == "" {
		return "", ir.Errorf(ir.ErrMalformedSource, location, line, "%s without a value", keyword)
	}
	if !qualifiedNameRE.MatchString(value) {
		return "", ir.Errorf(ir.ErrMalformedSource, location, line, "invalid %s name %q", keyword, value)
	}
	return value, nil
}

func isRuleTable(cell string) bool {
	if len(cell) < len(keywordRuleTable) || !strings.EqualFold(cell[:len(keywordRuleTable)], keywordRuleTable) {
		return false
	}
	rest := cell[len(keywordRuleTable):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// firstCell returns the index and trimmed value of the first non-blank cell, or -1.
func firstCell(row []string) (int, string) {
	for j, c := range row {
		if v := strings.TrimSpace(c); v != "" {
			return j, v
		}
	}
	return -1, ""
}

func cellsAt(row []string, columns []int) []string {
	out := make([]string, len(columns))
	for i, j := range columns {
		if j < len(row) {
			out[i] = strings.TrimSpace(row[j])
		}
	}
	return out
}
