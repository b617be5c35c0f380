/*
Copyright 2025 Payintel Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package payintel

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// StatementFormat describes how one bank lays out its downloaded statement:
// the field delimiter, the column names carrying the credit amount and the
// narration, and the pattern set its narrations use. Column names are matched
// case- and whitespace-insensitively against the header row.
type StatementFormat struct {
	Name             string
	Delimiter        rune
	CreditColumn     string
	DebitColumn      string
	NarrationColumn  string
	SecondaryColumns []string
	Patterns         PatternSet
}

// StatementRow is one qualifying credit line from a statement: a positive
// credit amount plus the narration text UTR extraction runs against.
type StatementRow struct {
	Credit    decimal.Decimal
	Narration string
	Secondary string
}

// IOBFormat parses the comma-delimited statement export with Credit, Debit
// and Narration columns.
var IOBFormat = StatementFormat{
	Name:             "iob",
	Delimiter:        ',',
	CreditColumn:     "Credit",
	DebitColumn:      "Debit",
	NarrationColumn:  "Narration",
	SecondaryColumns: []string{"Remarks", "Chq No"},
	Patterns:         DefaultPatterns,
}

// CUBFormat parses the pipe-delimited statement export where credits sit in a
// CR column and the description carries UTR: and UPI/CR/ markers.
var CUBFormat = StatementFormat{
	Name:            "cub",
	Delimiter:       '|',
	CreditColumn:    "CR",
	DebitColumn:     "DR",
	NarrationColumn: "Description",
	Patterns:        CUBPatterns,
}

// DefaultFormats returns the built-in bank-type to format mapping. Callers
// construct and extend their own copy; nothing here is process-global.
func DefaultFormats() map[string]StatementFormat {
	return map[string]StatementFormat{
		IOBFormat.Name: IOBFormat,
		CUBFormat.Name: CUBFormat,
	}
}

// normalizeHeader collapses a column name for matching. "Chq.  No" and
// "chqno" compare equal.
func normalizeHeader(name string) string {
	name = strings.ToLower(name)
	name = strings.Join(strings.Fields(name), "")
	return strings.ReplaceAll(name, ".", "")
}

// parseAmount strips thousands separators and parses the remainder. Returns
// false for empty or non-numeric fields.
func parseAmount(field string) (decimal.Decimal, bool) {
	field = strings.TrimSpace(strings.ReplaceAll(field, ",", ""))
	if field == "" || field == "-" {
		return decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(field)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}

// ParseStatement reads the statement at path using the given format and
// returns its qualifying credit rows. Malformed rows are skipped and counted,
// rows without a positive credit value are excluded. It fails with ParseError
// only when the file cannot be opened or yields no usable header; a statement
// with zero qualifying rows is a valid empty result.
func ParseStatement(path string, format StatementFormat) ([]StatementRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = format.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &ParseError{Path: path, Err: errors.New("statement has no header row")}
	}

	columns := map[string]int{}
	for i, name := range header {
		columns[normalizeHeader(name)] = i
	}
	creditIdx, ok := columns[normalizeHeader(format.CreditColumn)]
	if !ok {
		return nil, &ParseError{Path: path, Err: errors.New("credit column not found in header")}
	}
	narrationIdx, ok := columns[normalizeHeader(format.NarrationColumn)]
	if !ok {
		return nil, &ParseError{Path: path, Err: errors.New("narration column not found in header")}
	}
	secondaryIdx := []int{}
	for _, name := range format.SecondaryColumns {
		if idx, ok := columns[normalizeHeader(name)]; ok {
			secondaryIdx = append(secondaryIdx, idx)
		}
	}

	rows := []StatementRow{}
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if creditIdx >= len(record) || narrationIdx >= len(record) {
			skipped++
			continue
		}
		credit, ok := parseAmount(record[creditIdx])
		if !ok || !credit.IsPositive() {
			continue
		}
		secondary := []string{}
		for _, idx := range secondaryIdx {
			if idx < len(record) && strings.TrimSpace(record[idx]) != "" {
				secondary = append(secondary, strings.TrimSpace(record[idx]))
			}
		}
		rows = append(rows, StatementRow{
			Credit:    credit,
			Narration: strings.TrimSpace(record[narrationIdx]),
			Secondary: strings.Join(secondary, " "),
		})
	}
	if skipped > 0 {
		logrus.WithFields(logrus.Fields{"path": path, "skipped": skipped}).Debug("skipped malformed statement rows")
	}

	return rows, nil
}
