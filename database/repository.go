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
	"time"

	"github.com/payintel/payintel/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	bankAccount // Interface for bank account operations
	transaction // Interface for extracted transaction operations
	payin       // Interface for payin operations
}

// bankAccount defines methods for handling bank accounts.
type bankAccount interface {
	CreateBankAccount(ctx context.Context, account *model.BankAccount) (*model.BankAccount, error) // Creates a new bank account
	GetBankAccount(ctx context.Context, id string) (*model.BankAccount, error)                     // Retrieves a bank account by ID
	ListEnabledBankAccounts(ctx context.Context) ([]*model.BankAccount, error)                     // Retrieves all enabled bank accounts
}

// transaction defines methods for handling extracted statement transactions.
type transaction interface {
	GetExistingUTRs(ctx context.Context, merchantID string, utrs []string) (map[string]bool, error)       // Checks which UTRs are already recorded for a merchant
	BulkInsertTransactions(ctx context.Context, txns []*model.ExtractedTransaction) (int, error)          // Inserts new transactions, skipping conflicting UTRs
	GetTransactionByUTR(ctx context.Context, merchantID, utr string) (*model.ExtractedTransaction, error) // Retrieves a transaction by merchant and UTR
}

// payin defines methods for handling payins.
type payin interface {
	GetAssignedPayins(ctx context.Context, merchantID string) ([]*model.Payin, error)                          // Retrieves payins awaiting reconciliation for a merchant
	SettleAssignedPayin(ctx context.Context, payinID string, decide model.SettleFunc) (model.Settlement, error) // Settles one payin under row locks
	SweepStalePayins(ctx context.Context, cutoff time.Time) (int64, error)                                      // Drops payins that have sat unresolved past the cutoff
}
