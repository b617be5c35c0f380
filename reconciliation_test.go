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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payintel/payintel/database"
	"github.com/payintel/payintel/model"
)

func assignedPayin(amount string, userUTR string) *model.Payin {
	assignedAt := time.Now().Add(-2 * time.Minute)
	return &model.Payin{
		PayinID:          model.GenerateUUIDWithSuffix("payin"),
		MerchantID:       gofakeit.UUID(),
		Amount:           decimal.RequireFromString(amount),
		UserSubmittedUTR: userUTR,
		Status:           model.PayinStatusAssigned,
		AssignedAt:       &assignedAt,
		CreatedAt:        time.Now().Add(-3 * time.Minute),
	}
}

func unusedTransaction(utr string, amount int64) *model.ExtractedTransaction {
	return model.NewExtractedTransaction(gofakeit.UUID(), gofakeit.UUID(), utr, amount)
}

func TestDecideSettlement(t *testing.T) {
	now := time.Now()
	decide := decideSettlement(now)

	t.Run("no user UTR is not found", func(t *testing.T) {
		payin := assignedPayin("500", model.NoUTRSentinel)
		settlement := decide(payin, nil)
		assert.Equal(t, model.OutcomeNotFound, settlement.Outcome)
		assert.Empty(t, settlement.Status)
	})

	t.Run("no matching transaction is not found", func(t *testing.T) {
		payin := assignedPayin("500", "X1000000001")
		settlement := decide(payin, nil)
		assert.Equal(t, model.OutcomeNotFound, settlement.Outcome)
		assert.Empty(t, settlement.Status)
	})

	t.Run("used transaction is a duplicate claim", func(t *testing.T) {
		payin := assignedPayin("500", "X1000000001")
		txn := unusedTransaction("X1000000001", 500)
		txn.IsUsed = true

		settlement := decide(payin, txn)
		assert.Equal(t, model.OutcomeDuplicate, settlement.Outcome)
		assert.Equal(t, model.PayinStatusDuplicate, settlement.Status)
		assert.False(t, settlement.MarkTransactionUsed)
		assert.NotNil(t, settlement.Duration)
	})

	t.Run("amount mismatch drops without consuming the transaction", func(t *testing.T) {
		payin := assignedPayin("500", "X1000000001")
		txn := unusedTransaction("X1000000001", 450)

		settlement := decide(payin, txn)
		assert.Equal(t, model.OutcomeDropped, settlement.Outcome)
		assert.Equal(t, model.PayinStatusDropped, settlement.Status)
		assert.False(t, settlement.MarkTransactionUsed)
		require.NotNil(t, settlement.ConfirmedAmount)
		assert.Equal(t, int64(450), *settlement.ConfirmedAmount)
	})

	t.Run("requested amount is truncated before comparison", func(t *testing.T) {
		payin := assignedPayin("500.99", "X1000000001")
		txn := unusedTransaction("X1000000001", 500)

		settlement := decide(payin, txn)
		assert.Equal(t, model.OutcomeVerified, settlement.Outcome)
	})

	t.Run("match verifies and consumes the transaction", func(t *testing.T) {
		payin := assignedPayin("500", "X1000000001")
		txn := unusedTransaction("X1000000001", 500)

		settlement := decide(payin, txn)
		assert.Equal(t, model.OutcomeVerified, settlement.Outcome)
		assert.Equal(t, model.PayinStatusSuccess, settlement.Status)
		assert.True(t, settlement.MarkTransactionUsed)
		assert.Equal(t, "X1000000001", settlement.CanonicalUTR)
		require.NotNil(t, settlement.ConfirmedAmount)
		assert.Equal(t, int64(500), *settlement.ConfirmedAmount)
		assert.NotNil(t, settlement.Duration)
	})
}

func TestReconcileVerifiesMatchingPayin(t *testing.T) {
	engine, mock, err := newTestEngine()
	require.NoError(t, err)

	merchantID := gofakeit.UUID()
	payinID := "payin_1"
	assignedAt := time.Now().Add(-time.Minute)

	payinRow := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"payin_id", "merchant_id", "amount", "confirmed_amount", "utr", "user_submitted_utr", "status", "assigned_at", "duration_ms", "created_at"}).
			AddRow(payinID, merchantID, "500", nil, model.NoUTRSentinel, "X1000000001", model.PayinStatusAssigned, assignedAt, nil, time.Now())
	}

	mock.ExpectQuery("SELECT (.+) FROM payins").
		WithArgs(merchantID, model.PayinStatusAssigned).
		WillReturnRows(payinRow())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM payins (.+) FOR UPDATE").
		WithArgs(payinID).
		WillReturnRows(payinRow())
	mock.ExpectQuery("SELECT (.+) FROM extracted_transactions (.+) FOR UPDATE").
		WithArgs(merchantID, "X1000000001").
		WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "bank_account_id", "merchant_id", "amount", "utr", "is_used", "created_at"}).
			AddRow("txn_1", "bnk_1", merchantID, 500, "X1000000001", false, time.Now()))
	mock.ExpectExec("UPDATE extracted_transactions SET is_used").
		WithArgs("txn_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payins SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	summary, err := engine.Reconcile(context.Background(), merchantID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Verified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileRowErrorDoesNotAbortBatch(t *testing.T) {
	engine, mock, err := newTestEngine()
	require.NoError(t, err)

	merchantID := gofakeit.UUID()
	assignedAt := time.Now().Add(-time.Minute)

	mock.ExpectQuery("SELECT (.+) FROM payins").
		WithArgs(merchantID, model.PayinStatusAssigned).
		WillReturnRows(sqlmock.NewRows([]string{"payin_id", "merchant_id", "amount", "confirmed_amount", "utr", "user_submitted_utr", "status", "assigned_at", "duration_ms", "created_at"}).
			AddRow("payin_1", merchantID, "500", nil, "-", "-", model.PayinStatusAssigned, assignedAt, nil, time.Now()).
			AddRow("payin_2", merchantID, "750", nil, "-", "-", model.PayinStatusAssigned, assignedAt, nil, time.Now()))

	// payin_1 vanished before its row lock could be taken.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM payins (.+) FOR UPDATE").
		WithArgs("payin_1").
		WillReturnRows(sqlmock.NewRows([]string{"payin_id"}))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM payins (.+) FOR UPDATE").
		WithArgs("payin_2").
		WillReturnRows(sqlmock.NewRows([]string{"payin_id", "merchant_id", "amount", "confirmed_amount", "utr", "user_submitted_utr", "status", "assigned_at", "duration_ms", "created_at"}).
			AddRow("payin_2", merchantID, "750", nil, "-", "-", model.PayinStatusAssigned, assignedAt, nil, time.Now()))
	mock.ExpectCommit()

	summary, err := engine.Reconcile(context.Background(), merchantID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.NotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// fakeSettleStore is an in-memory datasource for exercising concurrent
// settlement. Its mutex stands in for the row locks.
type fakeSettleStore struct {
	database.IDataSource
	mu          sync.Mutex
	payin       *model.Payin
	txn         *model.ExtractedTransaction
	transitions int
}

func (f *fakeSettleStore) GetAssignedPayins(_ context.Context, _ string) ([]*model.Payin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *f.payin
	return []*model.Payin{&copied}, nil
}

func (f *fakeSettleStore) SettleAssignedPayin(_ context.Context, _ string, decide model.SettleFunc) (model.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.payin.Status != model.PayinStatusAssigned {
		return model.Settlement{Outcome: model.OutcomeSkipped}, nil
	}
	var txn *model.ExtractedTransaction
	if f.payin.HasUserUTR() && f.txn != nil && f.txn.UTR == f.payin.UserSubmittedUTR {
		txn = f.txn
	}
	settlement := decide(f.payin, txn)
	if settlement.MarkTransactionUsed && txn != nil {
		txn.IsUsed = true
	}
	if settlement.Status != "" {
		f.payin.Status = settlement.Status
		f.transitions++
	}
	return settlement, nil
}

func TestReconcileConcurrentRunsSettleExactlyOnce(t *testing.T) {
	payin := assignedPayin("500", "X1000000001")
	store := &fakeSettleStore{
		payin: payin,
		txn:   unusedTransaction("X1000000001", 500),
	}
	engine := &Payintel{datasource: store, formats: DefaultFormats()}

	var wg sync.WaitGroup
	summaries := make([]ReconciliationSummary, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			summary, err := engine.Reconcile(context.Background(), payin.MerchantID)
			assert.NoError(t, err)
			summaries[i] = summary
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.transitions)
	assert.Equal(t, model.PayinStatusSuccess, store.payin.Status)
	assert.True(t, store.txn.IsUsed)
	assert.Equal(t, 1, summaries[0].Verified+summaries[1].Verified)
}
