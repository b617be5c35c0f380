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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payintel/payintel/config"
	"github.com/payintel/payintel/model"
)

func TestAdapterRegistryBuild(t *testing.T) {
	account := testBankAccount()
	registry := AdapterRegistry{
		"iob": func(_ *model.BankAccount, _ Recognizer) (BankAdapter, error) {
			return &fakeAdapter{}, nil
		},
	}

	adapter, err := registry.Build(account, nil)
	require.NoError(t, err)
	assert.NotNil(t, adapter)

	account.BankType = "unknown-bank"
	_, err = registry.Build(account, nil)
	assert.Error(t, err)
}

func TestHTTPRecognizer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Image []byte `json:"image"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []byte("captcha-bytes"), payload.Image)
		assert.Equal(t, "token-1", r.Header.Get("X-Api-Key"))

		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  AB12CD  "})
	}))
	defer server.Close()

	recognizer := NewHTTPRecognizer(config.RecognizerConfig{
		Url:        server.URL,
		TimeoutSec: 5,
		Headers:    map[string]string{"X-Api-Key": "token-1"},
	})

	text, err := recognizer.Recognize(context.Background(), []byte("captcha-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "AB12CD", text)
}

func TestHTTPRecognizerServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"text": ""})
	}))
	defer server.Close()

	recognizer := NewHTTPRecognizer(config.RecognizerConfig{Url: server.URL, TimeoutSec: 5})
	_, err := recognizer.Recognize(context.Background(), []byte("captcha-bytes"))
	assert.Error(t, err)
}
