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
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestedAmountTruncates(t *testing.T) {
	payin := Payin{Amount: decimal.RequireFromString("1234.99")}
	assert.Equal(t, int64(1234), payin.RequestedAmount())

	payin.Amount = decimal.RequireFromString("500")
	assert.Equal(t, int64(500), payin.RequestedAmount())
}

func TestHasUserUTR(t *testing.T) {
	assert.False(t, (&Payin{UserSubmittedUTR: ""}).HasUserUTR())
	assert.False(t, (&Payin{UserSubmittedUTR: NoUTRSentinel}).HasUserUTR())
	assert.True(t, (&Payin{UserSubmittedUTR: "X1000000001"}).HasUserUTR())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, (&Payin{Status: PayinStatusInitiated}).IsTerminal())
	assert.False(t, (&Payin{Status: PayinStatusAssigned}).IsTerminal())
	assert.True(t, (&Payin{Status: PayinStatusSuccess}).IsTerminal())
	assert.True(t, (&Payin{Status: PayinStatusDropped}).IsTerminal())
	assert.True(t, (&Payin{Status: PayinStatusDuplicate}).IsTerminal())
}

func TestElapsedSinceAssignment(t *testing.T) {
	now := time.Now()

	unassigned := Payin{}
	assert.Nil(t, unassigned.ElapsedSinceAssignment(now))

	assignedAt := now.Add(-90 * time.Second)
	assigned := Payin{AssignedAt: &assignedAt}
	elapsed := assigned.ElapsedSinceAssignment(now)
	require.NotNil(t, elapsed)
	assert.Equal(t, 90*time.Second, *elapsed)
}

func TestBankAccountValidate(t *testing.T) {
	account := BankAccount{
		BankAccountID: "bnk_1",
		MerchantID:    "merchant_1",
		BankType:      "iob",
		Username:      "customer1",
		LoginType:     LoginTypePersonal,
		PortalURL:     "https://netbanking.example.com",
	}
	assert.NoError(t, account.Validate())

	account.Username = ""
	assert.Error(t, account.Validate())
}
