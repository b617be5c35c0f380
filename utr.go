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

import "regexp"

// UTR references accepted by the extractor are 10 to 16 characters long.
// Shorter or longer matches are never valid bank references.
const (
	minUTRLength = 10
	maxUTRLength = 16
)

// PatternSet is an ordered list of regular expressions tried against a
// narration. The first match that also satisfies the length gate wins; a
// pattern whose match fails the gate does not stop the scan. Bank formats may
// supply their own set when their narration uses distinct markers, but the
// ordered policy and the length gate are fixed.
type PatternSet []*regexp.Regexp

// DefaultPatterns covers the narration styles seen on most statements: a bank
// code followed by digits, a bare reference number, and UPI/IMPS markers.
var DefaultPatterns = PatternSet{
	regexp.MustCompile(`[A-Z]{4,6}\d{8,16}`),
	regexp.MustCompile(`\d{10,16}`),
	regexp.MustCompile(`UPI/(\d{12})`),
	regexp.MustCompile(`IMPS/(\d{12})`),
}

// CUBPatterns handles pipe-delimited narrations that carry explicit UTR: and
// UPI/CR/ markers ahead of the generic shapes.
var CUBPatterns = PatternSet{
	regexp.MustCompile(`UTR:([A-Z0-9]+)`),
	regexp.MustCompile(`UPI/CR/(\d{12})`),
	regexp.MustCompile(`[A-Z]{4,6}\d{8,16}`),
	regexp.MustCompile(`\d{10,16}`),
}

// Extract returns the first reference in text matching the set, or "" when no
// pattern yields a gated match. It is total over any input and never panics.
func (ps PatternSet) Extract(text string) string {
	if text == "" {
		return ""
	}
	for _, re := range ps {
		match := re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		utr := match[0]
		if len(match) > 1 {
			utr = match[1]
		}
		if len(utr) >= minUTRLength && len(utr) <= maxUTRLength {
			return utr
		}
	}
	return ""
}

// ExtractUTR extracts a canonical reference from free-form narration using
// the default pattern set.
func ExtractUTR(text string) string {
	return DefaultPatterns.Extract(text)
}
