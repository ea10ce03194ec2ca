// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

// Fuzz exercises the full parse pipeline against arbitrary bytes, for use
// with a coverage-guided fuzzer. It never panics on malformed input: every
// failure path returns an error which this just reports as uninteresting.
func Fuzz(data []byte) int {
	p, err := NewBytes(data, nil)
	if err != nil {
		return 0
	}
	defer p.Close()

	if err := p.Parse(); err != nil {
		return 0
	}
	return 1
}
