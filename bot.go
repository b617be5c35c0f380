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
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/payintel/payintel/config"
	"github.com/payintel/payintel/model"
)

// BotState is the lifecycle phase of a monitoring session.
type BotState string

const (
	StateIdle         BotState = "idle"
	StateInitializing BotState = "initializing"
	StateLoggingIn    BotState = "logging_in"
	StateActive       BotState = "active"
	StateReloggingIn  BotState = "relogging_in"
	StateLoggingOut   BotState = "logging_out"
	StateTerminated   BotState = "terminated"
)

// BotOutcome is how a session ended.
type BotOutcome string

const (
	RunCompleted BotOutcome = "completed"
	RunStopped   BotOutcome = "stopped"
	RunFailed    BotOutcome = "failed"
)

// stepOutcome tags the result of one cooperative step. Stop requests surface
// as stepStop at every suspension point rather than unwinding through the
// call stack.
type stepOutcome int

const (
	stepContinue stepOutcome = iota
	stepStop
	stepFail
)

const navigateMaxRetries = 3

// statementProcessor is the slice of the engine a session drives each
// iteration. *Payintel satisfies it.
type statementProcessor interface {
	ExtractStatement(ctx context.Context, path string, account *model.BankAccount) (ExtractionSummary, error)
	Reconcile(ctx context.Context, merchantID string) (ReconciliationSummary, error)
	SweepStale(ctx context.Context) (int64, error)
}

// StopCheck reports whether a stop has been requested for the session's bank
// account. It is polled at every suspension point.
type StopCheck func(ctx context.Context) bool

// BotSession owns one long-lived monitoring session for one bank account.
// Login is the most expensive and failure-prone step, so the session stays
// logged in across many statement pulls instead of logging in fresh each
// cycle. Sessions are goroutine-confined: all adapter calls are sequential.
type BotSession struct {
	account   *model.BankAccount
	adapter   BankAdapter
	processor statementProcessor
	emitter   *EventEmitter
	stop      StopCheck
	conf      config.BotConfig

	state     BotState
	iteration int
}

func NewBotSession(account *model.BankAccount, adapter BankAdapter, processor statementProcessor, emitter *EventEmitter, stop StopCheck, conf config.BotConfig) *BotSession {
	return &BotSession{
		account:   account,
		adapter:   adapter,
		processor: processor,
		emitter:   emitter,
		stop:      stop,
		conf:      conf,
		state:     StateIdle,
	}
}

// State returns the session's current lifecycle phase.
func (s *BotSession) State() BotState {
	return s.state
}

func (s *BotSession) setState(state BotState) {
	s.state = state
	s.log().WithField("state", state).Debug("session state changed")
}

func (s *BotSession) log() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"bank_account_id": s.account.BankAccountID,
		"merchant_id":     s.account.MerchantID,
	})
}

// Run drives the session from login through the monitoring loop to
// termination and returns the outcome. Cleanup (best-effort logout plus
// adapter release) runs unconditionally, whichever path terminates the
// session.
func (s *BotSession) Run(ctx context.Context) BotOutcome {
	outcome := RunFailed
	defer func() {
		s.cleanup()
		s.setState(StateTerminated)
		s.emitTerminal(outcome)
	}()

	s.setState(StateInitializing)
	s.emitter.Emit(ctx, model.StatusRunning, "session starting", s.account)

	switch s.login(ctx) {
	case stepStop:
		outcome = RunStopped
		return outcome
	case stepFail:
		outcome = RunFailed
		return outcome
	}

	s.setState(StateActive)
	s.emitter.Emit(ctx, model.StatusRunning, "logged in, monitoring statements", s.account)

	for {
		if s.stop(ctx) {
			outcome = RunStopped
			return outcome
		}
		if ctx.Err() != nil {
			outcome = RunCompleted
			return outcome
		}

		switch s.iterate(ctx) {
		case stepStop:
			outcome = RunStopped
			return outcome
		case stepFail:
			outcome = RunFailed
			return outcome
		}

		s.iteration++
		switch s.pause(ctx, s.conf.Interval()) {
		case stepStop:
			outcome = RunStopped
			return outcome
		case stepFail:
			outcome = RunCompleted
			return outcome
		}
	}
}

// login runs the login sub-flow, retrying rejected captchas and transient
// failures with a fresh attempt each time, up to the configured cap.
func (s *BotSession) login(ctx context.Context) stepOutcome {
	s.setState(StateLoggingIn)

	attempts := s.conf.CaptchaMaxAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		if s.stop(ctx) {
			return stepStop
		}
		err := s.adapter.Login(ctx)
		if err == nil {
			return stepContinue
		}
		if errors.Is(err, ErrCaptchaRejected) {
			s.log().WithField("attempt", attempt).Warn("captcha rejected, retrying with a fresh captcha")
			continue
		}
		if IsTransient(err) {
			s.log().WithFields(logrus.Fields{"attempt": attempt, "error": err}).Warn("transient login failure, retrying")
			continue
		}
		s.emitter.Emit(ctx, model.StatusError, fmt.Sprintf("login failed: %v", err), s.account)
		return stepFail
	}

	err := &AuthExhaustedError{Phase: "captcha", Attempts: attempts}
	s.emitter.Emit(ctx, model.StatusError, err.Error(), s.account)
	return stepFail
}

// relogin re-enters the login sub-flow after an in-session logout. On
// success the iteration counter resets to zero, starting a fresh monitoring
// epoch.
func (s *BotSession) relogin(ctx context.Context) stepOutcome {
	s.setState(StateReloggingIn)

	attempts := s.conf.ReloginMaxAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		if out := s.pause(ctx, s.conf.ReloginDelay()); out != stepContinue {
			return out
		}
		s.log().WithField("attempt", attempt).Info("relogging in")

		switch s.login(ctx) {
		case stepContinue:
			s.iteration = 0
			s.setState(StateActive)
			s.emitter.Emit(ctx, model.StatusRunning, "session re-established", s.account)
			return stepContinue
		case stepStop:
			return stepStop
		}
		s.setState(StateReloggingIn)
	}

	err := &AuthExhaustedError{Phase: "relogin", Attempts: attempts}
	s.emitter.Emit(ctx, model.StatusError, err.Error(), s.account)
	return stepFail
}

// iterate runs one monitoring cycle: logout check, navigate, download,
// extract, reconcile. Non-fatal errors trigger a logout re-check; if the
// session is still alive the cycle is logged and skipped.
func (s *BotSession) iterate(ctx context.Context) stepOutcome {
	loggedOut, err := s.adapter.IsLoggedOut(ctx)
	if err != nil {
		s.log().WithField("error", err).Warn("logout check failed, skipping cycle")
		return stepContinue
	}
	if loggedOut {
		return s.relogin(ctx)
	}

	if err := s.pull(ctx); err != nil {
		loggedOut, checkErr := s.adapter.IsLoggedOut(ctx)
		if checkErr == nil && loggedOut {
			return s.relogin(ctx)
		}
		s.log().WithField("error", err).Warn("statement cycle failed, continuing")
		s.emitter.Emit(ctx, model.StatusError, fmt.Sprintf("statement cycle failed: %v", err), s.account)
	}
	return stepContinue
}

// pull navigates to the statement page, downloads today's statement, and
// runs extraction then reconciliation over it.
func (s *BotSession) pull(ctx context.Context) error {
	navigate := func() error {
		if err := s.adapter.NavigateToStatement(ctx); err != nil {
			if IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), navigateMaxRetries), ctx)
	if err := backoff.Retry(navigate, policy); err != nil {
		return err
	}

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	path, err := s.adapter.DownloadStatement(ctx, from, now)
	if err != nil {
		return err
	}

	if _, err := s.processor.ExtractStatement(ctx, path, s.account); err != nil {
		return err
	}
	if _, err := s.processor.Reconcile(ctx, s.account.MerchantID); err != nil {
		return err
	}
	// Janitor step; a failed sweep does not fail the cycle.
	if _, err := s.processor.SweepStale(ctx); err != nil {
		s.log().WithField("error", err).Warn("stale payin sweep failed")
	}
	return nil
}

// pause waits for the given duration, polling the stop signal at the
// configured sub-interval so a stop request is honored promptly instead of
// only at the top of the next iteration. Context cancellation ends the wait
// with stepFail, which Run maps to a completed shutdown.
func (s *BotSession) pause(ctx context.Context, total time.Duration) stepOutcome {
	poll := s.conf.StopPoll()
	if poll <= 0 {
		poll = 2 * time.Second
	}
	deadline := time.Now().Add(total)
	for {
		if s.stop(ctx) {
			return stepStop
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return stepContinue
		}
		wait := poll
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return stepFail
		case <-time.After(wait):
		}
	}
}

// cleanup logs out and releases the adapter. Both are best effort; a failed
// logout must not leak the underlying session resource.
func (s *BotSession) cleanup() {
	s.setState(StateLoggingOut)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.adapter.Logout(ctx); err != nil {
		s.log().WithField("error", err).Debug("best-effort logout failed")
	}
	if err := s.adapter.Close(); err != nil {
		s.log().WithField("error", err).Debug("adapter close failed")
	}
}

func (s *BotSession) emitTerminal(outcome BotOutcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch outcome {
	case RunStopped:
		s.emitter.Emit(ctx, model.StatusStopped, "session stopped by request", s.account)
	case RunCompleted:
		s.emitter.Emit(ctx, model.StatusCompleted, "session completed", s.account)
	default:
		s.emitter.Emit(ctx, model.StatusError, "session failed", s.account)
	}
}
