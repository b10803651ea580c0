// Package csvingest parses uploaded review CSVs into canonical rows.
//
// The format is forgiving: the delimiter is sniffed from the
// header line, header names are matched against alias lists, and quoting is
// handled per line (quoted fields cannot span lines).
package csvingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MaxRows caps the number of data rows considered per document. Rows beyond
// the cap are ignored without being reported.
const MaxRows = 1000

// Placeholders for absent identifiers.
const (
	DefaultProductID  = "prod-1"
	DefaultReviewerID = "user-1"
)

const bom = "\uFEFF"

var (
	textAliases     = []string{"review_text", "text", "review", "content", "comment"}
	ratingAliases   = []string{"rating"}
	productAliases  = []string{"product_id", "productid", "product"}
	reviewerAliases = []string{"reviewer_id", "reviewerid", "user_id", "userid", "user"}

	lineBreak     = regexp.MustCompile(`\r?\n`)
	numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
)

// StructuralError rejects a whole document before any row is processed.
type StructuralError struct {
	Message string
}

func (e *StructuralError) Error() string { return e.Message }

var (
	ErrNoRows       = &StructuralError{Message: "CSV must include a header and at least one row."}
	ErrNoTextColumn = &StructuralError{Message: "CSV must contain a review_text/text/review column."}
)

type Row struct {
	// Line is the 1-based data row number (header excluded).
	Line       int
	Text       string
	Rating     float64
	ProductID  string
	ReviewerID string
}

// Blank reports whether the row has no review text and should be skipped.
func (r Row) Blank() bool {
	return strings.TrimSpace(r.Text) == ""
}

type Document struct {
	Delimiter rune
	Headers   []string
	// Rows holds every considered data row, blank ones included, capped at MaxRows.
	Rows []Row
}

// TotalRows is the number of data rows considered (after the cap, before
// blank rows are skipped).
func (d *Document) TotalRows() int {
	return len(d.Rows)
}

type columns struct {
	text, rating, product, reviewer int
}

// Parse splits raw into rows. It fails only for structural problems.
func Parse(raw string) (*Document, error) {
	lines := nonBlankLines(raw)
	if len(lines) < 2 {
		return nil, ErrNoRows
	}

	header := strings.TrimPrefix(lines[0], bom)
	delim := DetectDelimiter(header)

	headers := SplitLine(header, delim)
	for i, h := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	cols := columns{
		text:     findColumn(headers, textAliases),
		rating:   findColumn(headers, ratingAliases),
		product:  findColumn(headers, productAliases),
		reviewer: findColumn(headers, reviewerAliases),
	}
	if cols.text < 0 {
		return nil, ErrNoTextColumn
	}

	data := lines[1:]
	if len(data) > MaxRows {
		data = data[:MaxRows]
	}

	doc := &Document{
		Delimiter: delim,
		Headers:   headers,
		Rows:      make([]Row, 0, len(data)),
	}
	for i, line := range data {
		doc.Rows = append(doc.Rows, buildRow(i+1, SplitLine(line, delim), cols))
	}

	return doc, nil
}

func buildRow(line int, fields []string, cols columns) Row {
	row := Row{
		Line:       line,
		Text:       field(fields, cols.text),
		ProductID:  DefaultProductID,
		ReviewerID: DefaultReviewerID,
	}

	if cols.rating >= 0 {
		row.Rating = ParseRating(field(fields, cols.rating))
	}
	if v := field(fields, cols.product); cols.product >= 0 && v != "" {
		row.ProductID = v
	}
	if v := field(fields, cols.reviewer); cols.reviewer >= 0 && v != "" {
		row.ReviewerID = v
	}

	return row
}

// ParseRating reads the leading number of s, so "5 stars" is 5. Anything
// without a finite leading number is 0.
func ParseRating(s string) float64 {
	m := numericPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// DetectDelimiter picks whichever of comma, semicolon or tab occurs most
// often in the header. Ties go to the earlier candidate; no candidate means comma.
func DetectDelimiter(header string) rune {
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// SplitLine splits one line on delim. Delimiters inside double quotes are
// kept and a doubled quote inside quotes becomes a literal quote. Enclosing
// quotes are consumed while splitting, so only literal quotes survive into
// the trimmed fields.
func SplitLine(line string, delim rune) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == delim && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	fields = append(fields, current.String())

	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

func nonBlankLines(raw string) []string {
	var lines []string
	for _, l := range lineBreak.Split(raw, -1) {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func findColumn(headers, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range headers {
			if h == alias {
				return i
			}
		}
	}
	return -1
}

func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}
