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
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStatement(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseStatementIOB(t *testing.T) {
	path := writeStatement(t, `Date,Narration,Debit,Credit,Remarks
01-02-2026,UPI/412345678901/PAYER A,,500.00,
01-02-2026,NEFT OUTWARD,250.00,,
01-02-2026,"UPI/512345678901/PAYER B",,"1,234.99",
01-02-2026,INTEREST,,0,
`)

	rows, err := ParseStatement(path, IOBFormat)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "UPI/412345678901/PAYER A", rows[0].Narration)
	assert.True(t, rows[0].Credit.Equal(decimal.RequireFromString("500.00")))

	// Thousands separators are stripped, and truncation keeps 1234, not 1235.
	assert.True(t, rows[1].Credit.Equal(decimal.RequireFromString("1234.99")))
	assert.Equal(t, int64(1234), rows[1].Credit.IntPart())
}

func TestParseStatementCUB(t *testing.T) {
	path := writeStatement(t, `Txn Date|Description|DR|CR|Balance
01-02-2026|TRF UTR:CUBX12345678 DONE||750|10750
01-02-2026|ATM WITHDRAWAL|200||10550
01-02-2026|UPI/CR/612345678901/PAYER||1,000|11550
`)

	rows, err := ParseStatement(path, CUBFormat)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "TRF UTR:CUBX12345678 DONE", rows[0].Narration)
	assert.Equal(t, int64(1000), rows[1].Credit.IntPart())
}

func TestParseStatementHeaderMatchingInsensitive(t *testing.T) {
	path := writeStatement(t, `DATE, narration ,debit, CREDIT ,remarks
01-02-2026,UPI/412345678901/X,,300,
`)

	rows, err := ParseStatement(path, IOBFormat)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestParseStatementSkipsMalformedRows(t *testing.T) {
	path := writeStatement(t, `Date,Narration,Debit,Credit,Remarks
01-02-2026,GOOD ROW,,100,
short row
01-02-2026,NOT A NUMBER,,abc,
01-02-2026,ANOTHER GOOD ROW,,200,
`)

	rows, err := ParseStatement(path, IOBFormat)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseStatementZeroQualifyingRowsIsEmptyResult(t *testing.T) {
	path := writeStatement(t, `Date,Narration,Debit,Credit,Remarks
01-02-2026,DEBIT ONLY,500,,
`)

	rows, err := ParseStatement(path, IOBFormat)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseStatementErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ParseStatement(filepath.Join(t.TempDir(), "nope.csv"), IOBFormat)
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeStatement(t, "")
		_, err := ParseStatement(path, IOBFormat)
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
	})

	t.Run("header missing credit column", func(t *testing.T) {
		path := writeStatement(t, "Date,Narration,Remarks\n01-02-2026,X,Y\n")
		_, err := ParseStatement(path, IOBFormat)
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}
