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
	"time"

	"go.opentelemetry.io/otel"

	"github.com/payintel/payintel/internal/apierror"
	"github.com/payintel/payintel/model"
)

const payinColumns = `payin_id, merchant_id, amount, confirmed_amount, utr, user_submitted_utr, status, assigned_at, duration_ms, created_at`

func scanPayin(row interface{ Scan(...interface{}) error }) (*model.Payin, error) {
	payin := model.Payin{}
	var confirmedAmount sql.NullInt64
	var assignedAt sql.NullTime
	var durationMs sql.NullInt64

	err := row.Scan(&payin.PayinID, &payin.MerchantID, &payin.Amount, &confirmedAmount, &payin.UTR, &payin.UserSubmittedUTR, &payin.Status, &assignedAt, &durationMs, &payin.CreatedAt)
	if err != nil {
		return nil, err
	}
	if confirmedAmount.Valid {
		payin.ConfirmedAmount = &confirmedAmount.Int64
	}
	if assignedAt.Valid {
		payin.AssignedAt = &assignedAt.Time
	}
	if durationMs.Valid {
		d := time.Duration(durationMs.Int64) * time.Millisecond
		payin.Duration = &d
	}
	return &payin, nil
}

// GetAssignedPayins retrieves the payins currently awaiting reconciliation for
// a merchant, oldest assignment first.
func (d Datasource) GetAssignedPayins(ctx context.Context, merchantID string) ([]*model.Payin, error) {
	ctx, span := otel.Tracer("payin.database").Start(ctx, "Fetching assigned payins")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+payinColumns+`
		FROM payins
		WHERE merchant_id = $1 AND status = $2
		ORDER BY assigned_at ASC
	`, merchantID, model.PayinStatusAssigned)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch assigned payins", err)
	}
	defer rows.Close()

	payins := []*model.Payin{}
	for rows.Next() {
		payin, err := scanPayin(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payin", err)
		}
		payins = append(payins, payin)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating payins", err)
	}

	return payins, nil
}

// SettleAssignedPayin settles one payin inside a transaction. The payin row is
// locked, its status re-checked, and the candidate extracted transaction for
// its user-submitted UTR locked alongside it before decide runs. decide sees a
// consistent snapshot; its Settlement is applied under the same locks.
//
// A payin that is no longer assigned by the time the lock is taken settles as
// OutcomeSkipped with no writes.
func (d Datasource) SettleAssignedPayin(ctx context.Context, payinID string, decide model.SettleFunc) (model.Settlement, error) {
	ctx, span := otel.Tracer("payin.database").Start(ctx, "Settling assigned payin")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return model.Settlement{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin settlement transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `
		SELECT `+payinColumns+`
		FROM payins
		WHERE payin_id = $1
		FOR UPDATE
	`, payinID)
	payin, err := scanPayin(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Settlement{}, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payin with ID '%s' not found", payinID), err)
		}
		return model.Settlement{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock payin", err)
	}

	if payin.Status != model.PayinStatusAssigned {
		return model.Settlement{Outcome: model.OutcomeSkipped}, nil
	}

	var txn *model.ExtractedTransaction
	if payin.HasUserUTR() {
		candidate := model.ExtractedTransaction{}
		row := tx.QueryRowContext(ctx, `
			SELECT transaction_id, bank_account_id, merchant_id, amount, utr, is_used, created_at
			FROM extracted_transactions
			WHERE merchant_id = $1 AND utr = $2
			FOR UPDATE
		`, payin.MerchantID, payin.UserSubmittedUTR)
		err = row.Scan(&candidate.TransactionID, &candidate.BankAccountID, &candidate.MerchantID, &candidate.Amount, &candidate.UTR, &candidate.IsUsed, &candidate.CreatedAt)
		if err != nil && err != sql.ErrNoRows {
			return model.Settlement{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock transaction", err)
		}
		if err == nil {
			txn = &candidate
		}
	}

	settlement := decide(payin, txn)

	if settlement.MarkTransactionUsed && txn != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE extracted_transactions SET is_used = TRUE WHERE transaction_id = $1
		`, txn.TransactionID)
		if err != nil {
			return model.Settlement{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark transaction used", err)
		}
	}

	if settlement.Status != "" {
		var durationMs sql.NullInt64
		if settlement.Duration != nil {
			durationMs = sql.NullInt64{Int64: settlement.Duration.Milliseconds(), Valid: true}
		}
		var confirmedAmount sql.NullInt64
		if settlement.ConfirmedAmount != nil {
			confirmedAmount = sql.NullInt64{Int64: *settlement.ConfirmedAmount, Valid: true}
		}
		utr := payin.UTR
		if settlement.CanonicalUTR != "" {
			utr = settlement.CanonicalUTR
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE payins SET status = $1, confirmed_amount = $2, utr = $3, duration_ms = $4 WHERE payin_id = $5
		`, settlement.Status, confirmedAmount, utr, durationMs, payinID)
		if err != nil {
			return model.Settlement{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update payin", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return model.Settlement{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit settlement", err)
	}
	return settlement, nil
}

// SweepStalePayins drops payins left unresolved past the cutoff. Assigned
// payins age from their assignment time, initiated ones from creation.
// Returns the number of payins dropped.
func (d Datasource) SweepStalePayins(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := otel.Tracer("payin.database").Start(ctx, "Sweeping stale payins")
	defer span.End()

	res, err := d.Conn.ExecContext(ctx, `
		UPDATE payins SET status = $1
		WHERE (status = $2 AND assigned_at < $3)
		   OR (status = $4 AND created_at < $3)
	`, model.PayinStatusDropped, model.PayinStatusAssigned, cutoff, model.PayinStatusInitiated)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sweep stale payins", err)
	}

	dropped, err := res.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count swept payins", err)
	}
	return dropped, nil
}
