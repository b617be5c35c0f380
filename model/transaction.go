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

// ExtractedTransaction is one credit line parsed from a bank statement and a
// candidate match for some payin. Amount is in the smallest currency unit,
// truncated from the statement's decimal value. A UTR is unique per merchant:
// the same reference must not be recorded twice for one merchant, but distinct
// merchants may legitimately see colliding bank-generated references.
//
// IsUsed flips true exactly once, at the moment a payin is matched
// successfully. The reconciliation engine is the only writer.
type ExtractedTransaction struct {
	TransactionID string    `json:"transaction_id"`
	BankAccountID string    `json:"bank_account_id"`
	MerchantID    string    `json:"merchant_id"`
	Amount        int64     `json:"amount"`
	UTR           string    `json:"utr"`
	IsUsed        bool      `json:"is_used"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewExtractedTransaction builds a candidate record for the extraction
// pipeline. The id is assigned here so the bulk insert stays a plain insert.
func NewExtractedTransaction(bankAccountID, merchantID, utr string, amount int64) *ExtractedTransaction {
	return &ExtractedTransaction{
		TransactionID: GenerateUUIDWithSuffix("txn"),
		BankAccountID: bankAccountID,
		MerchantID:    merchantID,
		Amount:        amount,
		UTR:           utr,
		CreatedAt:     time.Now(),
	}
}
