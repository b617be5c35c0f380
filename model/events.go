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

// Session status values published at every phase transition.
const (
	StatusRunning   = "running"
	StatusStopped   = "stopped"
	StatusError     = "error"
	StatusCompleted = "completed"
)

// StatusEvent is one lifecycle update emitted by a monitoring session.
// Consumers (dashboards, logs) are best-effort recipients; delivery failure
// never aborts the session that produced the event.
type StatusEvent struct {
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	BankAccountID string    `json:"bank_account_id,omitempty"`
	MerchantID    string    `json:"merchant_id,omitempty"`
	EmittedAt     time.Time `json:"emitted_at"`
}
