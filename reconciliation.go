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
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/payintel/payintel/config"
	"github.com/payintel/payintel/model"
)

// ReconciliationSummary reports how one reconciliation pass classified the
// merchant's assigned payins.
type ReconciliationSummary struct {
	Verified   int `json:"verified"`
	Duplicates int `json:"duplicates"`
	Dropped    int `json:"dropped"`
	NotFound   int `json:"not_found"`
	Errors     int `json:"errors"`
}

// Reconcile settles every assigned payin for a merchant against the extracted
// transaction set. Each payin is settled in its own SQL transaction under row
// locks, so two concurrent passes never double-settle a payin or double-spend
// a transaction. Errors on one payin are counted and skipped; they never
// abort the batch.
func (p *Payintel) Reconcile(ctx context.Context, merchantID string) (ReconciliationSummary, error) {
	ctx, span := otel.Tracer("reconciliation.engine").Start(ctx, "Reconciling assigned payins")
	defer span.End()

	summary := ReconciliationSummary{}
	payins, err := p.datasource.GetAssignedPayins(ctx, merchantID)
	if err != nil {
		return summary, err
	}

	now := time.Now()
	for _, payin := range payins {
		settlement, err := p.datasource.SettleAssignedPayin(ctx, payin.PayinID, decideSettlement(now))
		if err != nil {
			summary.Errors++
			logrus.WithFields(logrus.Fields{"payin_id": payin.PayinID, "error": err}).Warn("failed to settle payin, skipping")
			continue
		}
		switch settlement.Outcome {
		case model.OutcomeVerified:
			summary.Verified++
		case model.OutcomeDuplicate:
			summary.Duplicates++
		case model.OutcomeDropped:
			summary.Dropped++
		case model.OutcomeNotFound:
			summary.NotFound++
		case model.OutcomeSkipped:
			// Another pass settled it first.
		}
	}

	if summary != (ReconciliationSummary{}) {
		logrus.WithFields(logrus.Fields{
			"merchant_id": merchantID,
			"verified":    summary.Verified,
			"duplicates":  summary.Duplicates,
			"dropped":     summary.Dropped,
			"not_found":   summary.NotFound,
			"errors":      summary.Errors,
		}).Info("reconciliation pass finished")
	}

	return summary, nil
}

// decideSettlement returns the pure settlement decision for one payin. The
// datasource runs it against the locked payin and its locked candidate
// transaction; all writes it requests are applied under those same locks.
//
// An amount mismatch drops the payin but leaves the transaction unused, so a
// mismatched claim never consumes the credit it pointed at.
func decideSettlement(now time.Time) model.SettleFunc {
	return func(payin *model.Payin, txn *model.ExtractedTransaction) model.Settlement {
		if !payin.HasUserUTR() || txn == nil {
			return model.Settlement{Outcome: model.OutcomeNotFound}
		}

		duration := payin.ElapsedSinceAssignment(now)

		if txn.IsUsed {
			return model.Settlement{
				Outcome:  model.OutcomeDuplicate,
				Status:   model.PayinStatusDuplicate,
				Duration: duration,
			}
		}

		if txn.Amount != payin.RequestedAmount() {
			confirmed := txn.Amount
			return model.Settlement{
				Outcome:         model.OutcomeDropped,
				Status:          model.PayinStatusDropped,
				ConfirmedAmount: &confirmed,
				Duration:        duration,
			}
		}

		confirmed := payin.RequestedAmount()
		return model.Settlement{
			Outcome:             model.OutcomeVerified,
			Status:              model.PayinStatusSuccess,
			ConfirmedAmount:     &confirmed,
			CanonicalUTR:        txn.UTR,
			MarkTransactionUsed: true,
			Duration:            duration,
		}
	}
}

// SweepStale force-drops payins stuck in assigned or initiated longer than
// the configured staleness window. It runs without row locks; the status
// guard in the UPDATE keeps it safe against concurrent settlement.
func (p *Payintel) SweepStale(ctx context.Context) (int64, error) {
	conf, err := config.Fetch()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-conf.Bot.StaleAfter())
	dropped, err := p.datasource.SweepStalePayins(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		logrus.WithField("dropped", dropped).Info("swept stale payins")
	}
	return dropped, nil
}
