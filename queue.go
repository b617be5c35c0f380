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

package payintel

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/payintel/payintel/config"
	redis_db "github.com/payintel/payintel/internal/redis-db"
	"github.com/payintel/payintel/model"
)

// Task type names routed by the worker mux.
const (
	BotRunTask       = "bot:run"
	WebhookEventTask = "webhook:event"
)

// Queue wraps the asynq client used to dispatch bot runs and webhook
// deliveries.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
	conf      *config.Configuration
}

// BotRunPayload is the payload for a bot:run task.
type BotRunPayload struct {
	BankAccountID string `json:"bank_account_id"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)

	return &Queue{
		Client:    client,
		Inspector: inspector,
		conf:      conf,
	}
}

// EnqueueBotRun dispatches a monitoring session for one bank account. The
// task ID is the bank account ID, so enqueueing an account that is already
// queued or running collapses into a no-op.
func (q *Queue) EnqueueBotRun(ctx context.Context, bankAccountID string) error {
	payload, err := json.Marshal(BotRunPayload{BankAccountID: bankAccountID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(BotRunTask, payload)
	info, err := q.Client.EnqueueContext(ctx, task,
		asynq.Queue(q.conf.Queue.BotQueue),
		asynq.TaskID(bankAccountID),
		asynq.MaxRetry(0),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			logrus.WithField("bank_account_id", bankAccountID).Info("bot run already queued, skipping")
			return nil
		}
		return err
	}
	logrus.WithFields(logrus.Fields{"task_id": info.ID, "queue": info.Queue}).Info("enqueued bot run")
	return nil
}

// EnqueueWebhookEvent dispatches one status event for webhook delivery.
func (q *Queue) EnqueueWebhookEvent(ctx context.Context, event model.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	task := asynq.NewTask(WebhookEventTask, payload)
	_, err = q.Client.EnqueueContext(ctx, task, asynq.Queue(q.conf.Queue.WebhookQueue))
	return err
}
