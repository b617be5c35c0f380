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

// CreateBankAccount inserts a new BankAccount into the database.
// The account is validated before insertion and receives a generated ID and
// creation timestamp.
func (d Datasource) CreateBankAccount(ctx context.Context, account *model.BankAccount) (*model.BankAccount, error) {
	ctx, span := otel.Tracer("bank_account.database").Start(ctx, "Saving bank account to db")
	defer span.End()

	account.BankAccountID = model.GenerateUUIDWithSuffix("bnk")
	account.CreatedAt = time.Now()

	if err := account.Validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid bank account", err)
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO bank_accounts (bank_account_id, merchant_id, nickname, bank_type, username, username2, password, login_type, portal_url, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, account.BankAccountID, account.MerchantID, account.Nickname, account.BankType, account.Username, account.Username2, account.Password, account.LoginType, account.PortalURL, account.Enabled, account.CreatedAt)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create bank account", err)
	}

	return account, nil
}

// GetBankAccount retrieves a bank account by its ID.
func (d Datasource) GetBankAccount(ctx context.Context, id string) (*model.BankAccount, error) {
	ctx, span := otel.Tracer("bank_account.database").Start(ctx, "Getting bank account from db")
	defer span.End()

	account := model.BankAccount{}
	row := d.Conn.QueryRowContext(ctx, `
		SELECT bank_account_id, merchant_id, nickname, bank_type, username, username2, password, login_type, portal_url, enabled, created_at
		FROM bank_accounts
		WHERE bank_account_id = $1
	`, id)

	err := row.Scan(&account.BankAccountID, &account.MerchantID, &account.Nickname, &account.BankType, &account.Username, &account.Username2, &account.Password, &account.LoginType, &account.PortalURL, &account.Enabled, &account.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Bank account with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve bank account", err)
	}

	return &account, nil
}

// ListEnabledBankAccounts retrieves every bank account that is currently
// enabled for bot runs.
func (d Datasource) ListEnabledBankAccounts(ctx context.Context) ([]*model.BankAccount, error) {
	ctx, span := otel.Tracer("bank_account.database").Start(ctx, "Listing enabled bank accounts")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT bank_account_id, merchant_id, nickname, bank_type, username, username2, password, login_type, portal_url, enabled, created_at
		FROM bank_accounts
		WHERE enabled = TRUE
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list bank accounts", err)
	}
	defer rows.Close()

	accounts := []*model.BankAccount{}
	for rows.Next() {
		account := model.BankAccount{}
		err = rows.Scan(&account.BankAccountID, &account.MerchantID, &account.Nickname, &account.BankType, &account.Username, &account.Username2, &account.Password, &account.LoginType, &account.PortalURL, &account.Enabled, &account.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan bank account", err)
		}
		accounts = append(accounts, &account)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating bank accounts", err)
	}

	return accounts, nil
}
