// Package ratefeed imports published bank base rates from an HTML rate table.
package ratefeed

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/antchfx/htmlquery"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/iwvelando/loan-compare/pkg/constants"
)

// DefaultColumn is the header of the rate column read when none is configured.
const DefaultColumn = "MRR"

var (
	// ErrNoTable means the page has no table with the expected headers.
	ErrNoTable = errors.New("no base-rate table found")

	spaces = regexp.MustCompile(`\s+`)
)

// Quote is one bank's published base rate.
type Quote struct {
	ShortName string
	Rate      float64
	On        civil.Date
}

// Parse reads quotes from the first table whose header row has a "Bank"
// column and a column whose header contains column. An optional "Effective"
// column carries the date in YYYY-MM-DD form; rows without one are dated
// today. Rows with an empty or "-" rate are skipped.
func Parse(doc *html.Node, column string, today civil.Date) ([]Quote, error) {
	if column == "" {
		column = DefaultColumn
	}

	tables, err := htmlquery.QueryAll(doc, "//table")
	if err != nil {
		return nil, fmt.Errorf("failed to xpath tables: %w", err)
	}

	for _, table := range tables {
		rows, err := htmlquery.QueryAll(table, ".//tr")
		if err != nil {
			return nil, fmt.Errorf("failed to xpath rows: %w", err)
		}
		if len(rows) == 0 {
			continue
		}
		cols, ok := locateColumns(cellTexts(rows[0]), column)
		if !ok {
			continue
		}
		return parseRows(rows[1:], cols, today)
	}
	return nil, ErrNoTable
}

type columns struct {
	bank, rate, effective int
}

func locateColumns(header []string, column string) (columns, bool) {
	cols := columns{bank: -1, rate: -1, effective: -1}
	want := strings.ToLower(column)
	for i, h := range header {
		lower := strings.ToLower(h)
		switch {
		case cols.bank < 0 && strings.Contains(lower, "bank"):
			cols.bank = i
		case cols.rate < 0 && strings.Contains(lower, want):
			cols.rate = i
		case cols.effective < 0 && strings.Contains(lower, "effective"):
			cols.effective = i
		}
	}
	return cols, cols.bank >= 0 && cols.rate >= 0
}

func parseRows(rows []*html.Node, cols columns, today civil.Date) ([]Quote, error) {
	quotes := make([]Quote, 0, len(rows))
	for _, row := range rows {
		cells := cellTexts(row)
		if len(cells) <= cols.bank || len(cells) <= cols.rate {
			continue
		}
		short := cells[cols.bank]
		rawRate := cells[cols.rate]
		if short == "" || rawRate == "" || rawRate == "-" {
			continue
		}

		rate, err := ParseRate(rawRate)
		if err != nil {
			return nil, fmt.Errorf("bank %s: %w", short, err)
		}

		on := today
		if cols.effective >= 0 && cols.effective < len(cells) && cells[cols.effective] != "" {
			d, err := civil.ParseDate(cells[cols.effective])
			if err != nil {
				return nil, fmt.Errorf("bank %s: invalid effective date %q, expected %s", short, cells[cols.effective], constants.DateLayout)
			}
			on = d
		}

		quotes = append(quotes, Quote{ShortName: short, Rate: rate, On: on})
	}
	return quotes, nil
}

// ParseRate converts cell text such as "6.850 %" or "6,85" into a percentage
// rounded to three fractional digits.
func ParseRate(text string) (float64, error) {
	cleaned := strings.TrimSuffix(spaces.ReplaceAllString(text, ""), "%")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("failed to parse rate from %q: %w", text, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative base rate %q", text)
	}
	return d.Round(constants.RatePrecision).InexactFloat64(), nil
}

func cellTexts(row *html.Node) []string {
	cells, err := htmlquery.QueryAll(row, "./th|./td")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		out = append(out, nodeText(c))
	}
	return out
}

// nodeText returns the visible text of node with whitespace collapsed.
func nodeText(node *html.Node) string {
	out := htmlquery.InnerText(node)
	out = strings.ReplaceAll(out, "\u00a0", " ")
	out = spaces.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
