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
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/payintel/payintel/internal/apierror"
	"github.com/payintel/payintel/model"
)

// GetExistingUTRs returns which of the given UTRs are already recorded for the
// merchant. The result maps each found UTR to true; absent UTRs are simply
// missing from the map.
func (d Datasource) GetExistingUTRs(ctx context.Context, merchantID string, utrs []string) (map[string]bool, error) {
	ctx, span := otel.Tracer("transaction.database").Start(ctx, "Checking existing UTRs")
	defer span.End()

	existing := map[string]bool{}
	if len(utrs) == 0 {
		return existing, nil
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT utr FROM extracted_transactions
		WHERE merchant_id = $1 AND utr = ANY($2)
	`, merchantID, pq.Array(utrs))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check existing UTRs", err)
	}
	defer rows.Close()

	for rows.Next() {
		var utr string
		if err := rows.Scan(&utr); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan UTR", err)
		}
		existing[utr] = true
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating UTRs", err)
	}

	return existing, nil
}

// BulkInsertTransactions inserts the given transactions in a single statement.
// Rows whose (merchant_id, utr) pair already exists are skipped, so concurrent
// extraction runs over overlapping statements stay idempotent. Returns the
// number of rows actually inserted.
func (d Datasource) BulkInsertTransactions(ctx context.Context, txns []*model.ExtractedTransaction) (int, error) {
	ctx, span := otel.Tracer("transaction.database").Start(ctx, "Bulk inserting transactions")
	defer span.End()

	if len(txns) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO extracted_transactions (transaction_id, bank_account_id, merchant_id, amount, utr, is_used, created_at) VALUES `)
	args := make([]interface{}, 0, len(txns)*7)
	for i, txn := range txns {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 7
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7))
		args = append(args, txn.TransactionID, txn.BankAccountID, txn.MerchantID, txn.Amount, txn.UTR, txn.IsUsed, txn.CreatedAt)
	}
	sb.WriteString(` ON CONFLICT (merchant_id, utr) DO NOTHING`)

	res, err := d.Conn.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		// A raced unique violation is not a failure here; the rows exist.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return 0, nil
		}
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert transactions", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count inserted transactions", err)
	}
	return int(inserted), nil
}

// GetTransactionByUTR retrieves the transaction recorded under the given UTR
// for a merchant.
func (d Datasource) GetTransactionByUTR(ctx context.Context, merchantID, utr string) (*model.ExtractedTransaction, error) {
	ctx, span := otel.Tracer("transaction.database").Start(ctx, "Getting transaction by UTR")
	defer span.End()

	txn := model.ExtractedTransaction{}
	row := d.Conn.QueryRowContext(ctx, `
		SELECT transaction_id, bank_account_id, merchant_id, amount, utr, is_used, created_at
		FROM extracted_transactions
		WHERE merchant_id = $1 AND utr = $2
	`, merchantID, utr)

	err := row.Scan(&txn.TransactionID, &txn.BankAccountID, &txn.MerchantID, &txn.Amount, &txn.UTR, &txn.IsUsed, &txn.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with UTR '%s' not found", utr), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}

	return &txn, nil
}
