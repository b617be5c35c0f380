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

package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payintel/payintel/model"
)

func TestGetExistingUTRs(t *testing.T) {
	datasource, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT utr FROM extracted_transactions").
		WithArgs("merchant_1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"utr"}).AddRow("UTR000000001"))

	existing, err := datasource.GetExistingUTRs(context.Background(), "merchant_1", []string{"UTR000000001", "UTR000000002"})
	require.NoError(t, err)
	assert.True(t, existing["UTR000000001"])
	assert.False(t, existing["UTR000000002"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExistingUTRsEmptyInput(t *testing.T) {
	datasource, mock := newTestDatasource(t)

	existing, err := datasource.GetExistingUTRs(context.Background(), "merchant_1", nil)
	require.NoError(t, err)
	assert.Empty(t, existing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertTransactions(t *testing.T) {
	datasource, mock := newTestDatasource(t)

	txns := []*model.ExtractedTransaction{
		model.NewExtractedTransaction("bnk_1", "merchant_1", "UTR000000001", 500),
		model.NewExtractedTransaction("bnk_1", "merchant_1", "UTR000000002", 750),
	}

	mock.ExpectExec("INSERT INTO extracted_transactions (.+) ON CONFLICT").
		WillReturnResult(sqlmock.NewResult(0, 2))

	inserted, err := datasource.BulkInsertTransactions(context.Background(), txns)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertTransactionsEmpty(t *testing.T) {
	datasource, mock := newTestDatasource(t)

	inserted, err := datasource.BulkInsertTransactions(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertTransactionsToleratesRacedUniqueViolation(t *testing.T) {
	datasource, mock := newTestDatasource(t)

	txns := []*model.ExtractedTransaction{
		model.NewExtractedTransaction("bnk_1", "merchant_1", "UTR000000001", 500),
	}

	mock.ExpectExec("INSERT INTO extracted_transactions").
		WillReturnError(&pq.Error{Code: "23505"})

	inserted, err := datasource.BulkInsertTransactions(context.Background(), txns)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
