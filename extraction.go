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

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/payintel/payintel/model"
)

// ExtractionSummary reports what one pipeline run did with a statement file.
type ExtractionSummary struct {
	Extracted        int `json:"extracted"`
	Saved            int `json:"saved"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	SkippedInvalid   int `json:"skipped_invalid"`
}

// ExtractStatement runs the extraction pipeline over a downloaded statement:
// parse the file, extract a UTR per credit row, truncate amounts, drop
// duplicates against the merchant's already-persisted UTRs, and persist the
// remainder in one batch. Running it twice over the same file saves nothing
// the second time. Only an unreadable file fails the call; bad rows are
// counted and skipped.
func (p *Payintel) ExtractStatement(ctx context.Context, path string, account *model.BankAccount) (ExtractionSummary, error) {
	ctx, span := otel.Tracer("extraction.pipeline").Start(ctx, "Extracting statement")
	defer span.End()

	summary := ExtractionSummary{}
	format := p.formatFor(account.BankType)

	rows, err := ParseStatement(path, format)
	if err != nil {
		return summary, &ExtractionError{Path: path, Err: err}
	}

	candidates := []*model.ExtractedTransaction{}
	seen := map[string]bool{}
	for _, row := range rows {
		utr := format.Patterns.Extract(row.Narration)
		if utr == "" && row.Secondary != "" {
			utr = format.Patterns.Extract(row.Secondary)
		}
		if utr == "" {
			summary.SkippedInvalid++
			continue
		}
		amount := row.Credit.IntPart()
		if amount <= 0 {
			summary.SkippedInvalid++
			continue
		}
		summary.Extracted++
		if seen[utr] {
			summary.SkippedDuplicate++
			continue
		}
		seen[utr] = true

		candidates = append(candidates, model.NewExtractedTransaction(account.BankAccountID, account.MerchantID, utr, amount))
	}

	if len(candidates) == 0 {
		return summary, nil
	}

	utrs := make([]string, 0, len(candidates))
	for _, txn := range candidates {
		utrs = append(utrs, txn.UTR)
	}
	existing, err := p.datasource.GetExistingUTRs(ctx, account.MerchantID, utrs)
	if err != nil {
		return summary, err
	}

	fresh := []*model.ExtractedTransaction{}
	for _, txn := range candidates {
		if existing[txn.UTR] {
			summary.SkippedDuplicate++
			continue
		}
		fresh = append(fresh, txn)
	}

	saved, err := p.datasource.BulkInsertTransactions(ctx, fresh)
	if err != nil {
		return summary, err
	}
	summary.Saved = saved
	// Rows the insert silently skipped were persisted by a concurrent run.
	summary.SkippedDuplicate += len(fresh) - saved

	logrus.WithFields(logrus.Fields{
		"bank_account_id":   account.BankAccountID,
		"extracted":         summary.Extracted,
		"saved":             summary.Saved,
		"skipped_duplicate": summary.SkippedDuplicate,
		"skipped_invalid":   summary.SkippedInvalid,
	}).Info("statement extraction finished")

	return summary, nil
}
