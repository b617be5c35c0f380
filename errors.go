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
	"errors"
	"fmt"
)

// ErrCaptchaRejected is returned by an adapter's Login when the bank rejected
// the submitted captcha text. The session retries with a fresh captcha, up to
// the configured cap.
var ErrCaptchaRejected = errors.New("captcha rejected")

// TransientError marks a bank-side hiccup (network blip, stale page element)
// that is retried within the current phase rather than failing the session.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient adapter error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is, or wraps, a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// AuthExhaustedError is returned when the captcha or relogin retry cap is
// spent. It is the only error class that terminates a whole session.
type AuthExhaustedError struct {
	Phase    string
	Attempts int
}

func (e *AuthExhaustedError) Error() string {
	return fmt.Sprintf("%s exhausted after %d attempts", e.Phase, e.Attempts)
}

// ParseError is returned when a statement file cannot be opened or carries no
// usable header. A file with zero qualifying rows is an empty result, not a
// ParseError.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse statement %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractionError is returned when the extraction pipeline cannot read its
// source file at all. Bad individual rows never produce one.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
