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
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/payintel/payintel/config"
	"github.com/payintel/payintel/internal/request"
	"github.com/payintel/payintel/model"
)

// BankAdapter drives one bank's online portal for one credential set. A
// session owns exactly one adapter and calls it sequentially; adapters are
// never shared between sessions.
//
// Login returns ErrCaptchaRejected when the bank refused the submitted
// captcha text; the session retries with a fresh captcha. Transient
// navigation failures should be wrapped with Transient so the session retries
// within the current phase instead of failing.
type BankAdapter interface {
	Login(ctx context.Context) error
	IsLoggedOut(ctx context.Context) (bool, error)
	NavigateToStatement(ctx context.Context) error
	DownloadStatement(ctx context.Context, from, to time.Time) (string, error)
	Logout(ctx context.Context) error
	Close() error
}

// Recognizer turns a rendered captcha image into text. Answers carry no
// correctness guarantee; the session's captcha retry loop absorbs wrong ones.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// AdapterFactory builds an adapter for one bank account, injecting the
// captcha recognizer the adapter should use.
type AdapterFactory func(account *model.BankAccount, recognizer Recognizer) (BankAdapter, error)

// AdapterRegistry maps a bank-type identifier to its adapter factory. The
// registry is constructed and passed in at startup; there is no process-wide
// registration.
type AdapterRegistry map[string]AdapterFactory

// Build constructs the adapter for the account's bank type.
func (r AdapterRegistry) Build(account *model.BankAccount, recognizer Recognizer) (BankAdapter, error) {
	factory, ok := r[account.BankType]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for bank type %s", account.BankType)
	}
	return factory(account, recognizer)
}

// HTTPRecognizer posts captcha images to a configured recognition service and
// returns the text it reads back.
type HTTPRecognizer struct {
	url     string
	headers map[string]string
	timeout time.Duration
}

func NewHTTPRecognizer(conf config.RecognizerConfig) *HTTPRecognizer {
	return &HTTPRecognizer{
		url:     conf.Url,
		headers: conf.Headers,
		timeout: conf.Timeout(),
	}
}

type recognizePayload struct {
	Image []byte `json:"image"`
}

type recognizeResponse struct {
	Text string `json:"text"`
}

func (h *HTTPRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	body, err := request.ToJsonReq(recognizePayload{Image: image})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, body)
	if err != nil {
		return "", err
	}
	for key, value := range h.headers {
		req.Header.Set(key, value)
	}

	var response recognizeResponse
	resp, err := request.Call(req, &response)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("recognizer returned status %d", resp.StatusCode)
	}

	return strings.TrimSpace(response.Text), nil
}
