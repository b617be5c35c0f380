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

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Login flow variants supported by the bank portals.
const (
	LoginTypePersonal  = "personal"
	LoginTypeCorporate = "corp"
)

// BankAccount identifies one online-banking credential set. It is created and
// edited by the surrounding application; a monitoring session reads it once at
// session start.
type BankAccount struct {
	BankAccountID string    `json:"bank_account_id"`
	MerchantID    string    `json:"merchant_id"`
	Nickname      string    `json:"nickname"`
	BankType      string    `json:"bank_type"`
	Username      string    `json:"username"`
	Username2     string    `json:"username2,omitempty"`
	Password      string    `json:"-"`
	LoginType     string    `json:"login_type"`
	PortalURL     string    `json:"portal_url"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
}

func (a *BankAccount) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.BankAccountID, validation.Required),
		validation.Field(&a.MerchantID, validation.Required),
		validation.Field(&a.BankType, validation.Required),
		validation.Field(&a.Username, validation.Required),
		validation.Field(&a.PortalURL, validation.Required),
		validation.Field(&a.LoginType, validation.In(LoginTypePersonal, LoginTypeCorporate)),
	)
}
