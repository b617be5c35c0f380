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

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payin statuses. Once a payin leaves StatusAssigned it is terminal and must
// never be mutated again by the reconciliation engine.
const (
	PayinStatusInitiated = "initiated"
	PayinStatusAssigned  = "assigned"
	PayinStatusSuccess   = "success"
	PayinStatusDropped   = "dropped"
	PayinStatusDuplicate = "duplicate"
)

// NoUTRSentinel is the placeholder the payment page stores when the payer
// submitted no reference.
const NoUTRSentinel = "-"

// Payin is one payment intent awaiting confirmation that a matching bank
// credit occurred. Created by the surrounding application when a payment link
// is issued; mutated exclusively by the reconciliation engine while assigned.
type Payin struct {
	PayinID          string          `json:"payin_id"`
	MerchantID       string          `json:"merchant_id"`
	Amount           decimal.Decimal `json:"amount"`
	ConfirmedAmount  *int64          `json:"confirmed_amount,omitempty"`
	UTR              string          `json:"utr,omitempty"`
	UserSubmittedUTR string          `json:"user_submitted_utr,omitempty"`
	Status           string          `json:"status"`
	AssignedAt       *time.Time      `json:"assigned_at,omitempty"`
	Duration         *time.Duration  `json:"duration,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// RequestedAmount is the integer amount the payer was asked to transfer,
// truncated from the decimal requested value. Comparison against extracted
// transactions happens in this integer space.
func (p *Payin) RequestedAmount() int64 {
	return p.Amount.IntPart()
}

// HasUserUTR reports whether the payer actually submitted a reference.
func (p *Payin) HasUserUTR() bool {
	return p.UserSubmittedUTR != "" && p.UserSubmittedUTR != NoUTRSentinel
}

// IsTerminal reports whether the payin has left the assigned state.
func (p *Payin) IsTerminal() bool {
	switch p.Status {
	case PayinStatusSuccess, PayinStatusDropped, PayinStatusDuplicate:
		return true
	}
	return false
}

// ElapsedSinceAssignment stamps the wall-clock duration from assignment to
// resolution. Returns nil when the payer never opened the payment page.
func (p *Payin) ElapsedSinceAssignment(now time.Time) *time.Duration {
	if p.AssignedAt == nil {
		return nil
	}
	d := now.Sub(*p.AssignedAt)
	return &d
}
