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

package model

import "time"

// SettlementOutcome classifies how one payin fared in a reconciliation pass.
type SettlementOutcome string

const (
	OutcomeVerified  SettlementOutcome = "verified"
	OutcomeDuplicate SettlementOutcome = "duplicate"
	OutcomeDropped   SettlementOutcome = "dropped"
	OutcomeNotFound  SettlementOutcome = "not_found"
	// OutcomeSkipped means the payin was no longer assigned by the time the
	// row lock was taken; a concurrent pass already settled it.
	OutcomeSkipped SettlementOutcome = "skipped"
)

// Settlement is the write-set produced by the reconciliation decision for one
// payin. An empty Status leaves the payin untouched.
type Settlement struct {
	Outcome             SettlementOutcome
	Status              string
	ConfirmedAmount     *int64
	CanonicalUTR        string
	MarkTransactionUsed bool
	Duration            *time.Duration
}

// SettleFunc decides a settlement from the locked payin and its candidate
// transaction (nil when no merchant-scoped UTR match exists). It must be pure;
// all writes happen in the datasource under the same row locks.
type SettleFunc func(payin *Payin, txn *ExtractedTransaction) Settlement
