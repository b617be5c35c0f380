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
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/payintel/payintel/config"
	"github.com/payintel/payintel/internal/request"
	"github.com/payintel/payintel/model"
)

// EventEmitter publishes session lifecycle events. Every event is logged;
// when a webhook URL is configured it is also enqueued for delivery. Neither
// path is allowed to abort the session that produced the event.
type EventEmitter struct {
	queue      *Queue
	webhookURL string
}

func NewEventEmitter(conf *config.Configuration, queue *Queue) *EventEmitter {
	return &EventEmitter{
		queue:      queue,
		webhookURL: conf.Notification.Webhook.Url,
	}
}

// Emit publishes one status event for a bank account.
func (e *EventEmitter) Emit(ctx context.Context, status, message string, account *model.BankAccount) {
	event := model.StatusEvent{
		Status:        status,
		Message:       message,
		BankAccountID: account.BankAccountID,
		MerchantID:    account.MerchantID,
		EmittedAt:     time.Now(),
	}

	entry := logrus.WithFields(logrus.Fields{
		"bank_account_id": event.BankAccountID,
		"merchant_id":     event.MerchantID,
		"status":          event.Status,
	})
	if status == model.StatusError {
		entry.Error(message)
	} else {
		entry.Info(message)
	}

	if e.webhookURL == "" || e.queue == nil {
		return
	}
	if err := e.queue.EnqueueWebhookEvent(ctx, event); err != nil {
		logrus.WithField("error", err).Warn("failed to enqueue status event for webhook delivery")
	}
}

// ProcessWebhookEvent delivers one queued status event to the configured
// webhook endpoint. A non-2xx response is an error so asynq retries the
// delivery.
func ProcessWebhookEvent(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var event model.StatusEvent
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		return err
	}

	body, err := request.ToJsonReq(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.Notification.Webhook.Url, body)
	if err != nil {
		return err
	}
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	resp, err := request.Call(req, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook delivery returned status %d", resp.StatusCode)
	}
	return nil
}
