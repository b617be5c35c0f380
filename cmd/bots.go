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

package main

import (
	"context"
	"errors"
	"log"

	"github.com/spf13/cobra"
)

// botCommands defines the "bots" command group: enqueue monitoring sessions
// and request graceful stops.
func botCommands(app *appInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bots",
		Short: "manage bank monitoring bots",
	}
	cmd.AddCommand(botStartCommand(app))
	cmd.AddCommand(botStopCommand(app))
	return cmd
}

func botStartCommand(app *appInstance) *cobra.Command {
	var accountID string
	var all bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "enqueue a monitoring session for one or all enabled accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if all {
				accounts, err := app.engine.Datasource().ListEnabledBankAccounts(ctx)
				if err != nil {
					return err
				}
				for _, account := range accounts {
					if err := app.engine.Queue().EnqueueBotRun(ctx, account.BankAccountID); err != nil {
						log.Printf("Error enqueueing bot run for %s: %v", account.BankAccountID, err)
					}
				}
				return nil
			}

			if accountID == "" {
				return errors.New("either --account or --all is required")
			}
			return app.engine.Queue().EnqueueBotRun(ctx, accountID)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "bank account id to start")
	cmd.Flags().BoolVar(&all, "all", false, "start every enabled bank account")
	return cmd
}

func botStopCommand(app *appInstance) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "request a graceful stop of a running session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if accountID == "" {
				return errors.New("--account is required")
			}
			return app.coordinator.RequestStop(context.Background(), accountID)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "bank account id to stop")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
