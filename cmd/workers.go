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
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/payintel/payintel"
	"github.com/payintel/payintel/config"
	redis_db "github.com/payintel/payintel/internal/redis-db"
)

// processBotRun drives one full monitoring session for the bank account named
// in the task payload.
func (app *appInstance) processBotRun(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("payintel.bot.worker").Start(ctx, "Process bot run from queue")
	defer span.End()

	var payload payintel.BotRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	err := app.coordinator.Run(ctx, payload.BankAccountID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"bank_account_id": payload.BankAccountID, "error": err}).Error("bot run failed")
		return err
	}

	log.Println(" [*] Bot Run Finished", payload.BankAccountID)
	return nil
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	// Bot runs are long-lived sessions; webhook deliveries are short. One
	// weight each keeps deliveries flowing while sessions run.
	queues := make(map[string]int)
	queues[cfg.Queue.BotQueue] = 1
	queues[cfg.Queue.WebhookQueue] = 3
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			// Sessions across bank accounts run in parallel; within one
			// session everything is sequential.
			Concurrency: 10,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(app *appInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(payintel.BotRunTask, app.processBotRun)
	mux.HandleFunc(payintel.WebhookEventTask, payintel.ProcessWebhookEvent)
}

// workerCommands defines the "workers" command to start the queue workers
// that execute bot runs and deliver status webhooks.
func workerCommands(app *appInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start payintel workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			// Coordination keys from a previous process generation cannot
			// correspond to a still-running session.
			if err := app.coordinator.PurgeStale(ctx); err != nil {
				log.Printf("Error purging stale coordination keys: %v", err)
			}

			queues := initializeQueues()
			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(app, mux)

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run worker server: %v", err)
			}
		},
	}
	return cmd
}
