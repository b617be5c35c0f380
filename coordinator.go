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
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/payintel/payintel/config"
	"github.com/payintel/payintel/internal/coordination"
	redlock "github.com/payintel/payintel/internal/lock"
	"github.com/payintel/payintel/model"
)

// Coordination key prefixes. The naming scheme is internal to the
// coordinator; nothing else builds these keys.
const (
	botLeasePrefix = "payintel:bot:lease:"
	botStopPrefix  = "payintel:bot:stop:"
)

func leaseKey(bankAccountID string) string { return botLeasePrefix + bankAccountID }
func stopKey(bankAccountID string) string  { return botStopPrefix + bankAccountID }

// Coordinator enforces at most one live session per bank account and exposes
// the graceful-stop protocol. The lease is acquired with an owner token and a
// safety TTL that only matters after a crash; normal termination releases it
// explicitly. The stop signal is independent of the lease: setting it never
// frees the lease, only the session's own cleanup does.
type Coordinator struct {
	engine     *Payintel
	store      coordination.Store
	registry   AdapterRegistry
	recognizer Recognizer
	emitter    *EventEmitter
}

func NewCoordinator(engine *Payintel, store coordination.Store, registry AdapterRegistry, recognizer Recognizer, emitter *EventEmitter) *Coordinator {
	return &Coordinator{
		engine:     engine,
		store:      store,
		registry:   registry,
		recognizer: recognizer,
		emitter:    emitter,
	}
}

// Run executes one full monitoring session for a bank account: acquire the
// lease, clear any stale stop flag, build the bank adapter, drive the session
// to termination, then release the lease and stop flag. A run for an account
// whose lease is already held is a no-op, not an error.
func (c *Coordinator) Run(ctx context.Context, bankAccountID string) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	account, err := c.engine.datasource.GetBankAccount(ctx, bankAccountID)
	if err != nil {
		return errors.Wrap(err, "failed to load bank account")
	}
	if !account.Enabled {
		logrus.WithField("bank_account_id", bankAccountID).Info("bank account disabled, skipping run")
		return nil
	}

	lease := redlock.NewLocker(c.engine.redis, leaseKey(bankAccountID), model.GenerateUUIDWithSuffix("lease"))
	if err := lease.Lock(ctx, conf.Bot.LeaseTTL()); err != nil {
		logrus.WithFields(logrus.Fields{"bank_account_id": bankAccountID, "error": err}).Info("session already running, skipping run")
		return nil
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := lease.Unlock(cleanupCtx); err != nil {
			logrus.WithFields(logrus.Fields{"bank_account_id": bankAccountID, "error": err}).Warn("failed to release session lease")
		}
		if err := c.store.Delete(cleanupCtx, stopKey(bankAccountID)); err != nil {
			logrus.WithFields(logrus.Fields{"bank_account_id": bankAccountID, "error": err}).Warn("failed to clear stop signal")
		}
	}()

	// A stop flag left over from a previous run must not kill this one.
	if err := c.store.Delete(ctx, stopKey(bankAccountID)); err != nil {
		return errors.Wrap(err, "failed to clear stale stop signal")
	}

	adapter, err := c.registry.Build(account, c.recognizer)
	if err != nil {
		c.emitter.Emit(ctx, model.StatusError, err.Error(), account)
		return err
	}

	session := NewBotSession(account, adapter, c.engine, c.emitter, c.stopCheck(bankAccountID), conf.Bot)
	outcome := session.Run(ctx)
	logrus.WithFields(logrus.Fields{"bank_account_id": bankAccountID, "outcome": outcome}).Info("session terminated")
	return nil
}

// RequestStop asks a running session to terminate at its next cooperative
// checkpoint. The signal is TTL-bounded so an unobserved request cannot
// linger forever.
func (c *Coordinator) RequestStop(ctx context.Context, bankAccountID string) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	return c.store.Set(ctx, stopKey(bankAccountID), "1", conf.Bot.LeaseTTL())
}

// PurgeStale deletes every lease and stop key at process startup. Leftovers
// from a previous process generation cannot correspond to a still-running
// session.
func (c *Coordinator) PurgeStale(ctx context.Context) error {
	leases, err := c.store.DeletePrefix(ctx, botLeasePrefix)
	if err != nil {
		return err
	}
	stops, err := c.store.DeletePrefix(ctx, botStopPrefix)
	if err != nil {
		return err
	}
	if leases+stops > 0 {
		logrus.WithFields(logrus.Fields{"leases": leases, "stops": stops}).Info("purged stale coordination keys")
	}
	return nil
}

func (c *Coordinator) stopCheck(bankAccountID string) StopCheck {
	return func(ctx context.Context) bool {
		_, exists, err := c.store.Get(ctx, stopKey(bankAccountID))
		if err != nil {
			logrus.WithFields(logrus.Fields{"bank_account_id": bankAccountID, "error": err}).Warn("stop signal check failed")
			return false
		}
		return exists
	}
}
