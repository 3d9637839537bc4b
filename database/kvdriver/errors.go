/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package kvdriver

import "github.com/traktion/anttp/internal/apperr"

// These are adapter-misconfiguration errors, not request-shaped ones: a
// Driver built with a nil receiver or a missing closure is a caller bug,
// so every case maps to ReasonInvalidInput regardless of which method
// tripped over it. Re-homed onto apperr so the kv layer reports through
// the same taxonomy as the rest of the gateway instead of carrying its
// own registered error-code range.
func errBadInstance(op string) error {
	return apperr.Newf(apperr.PhaseGet, apperr.ReasonInvalidInput, op, "bad kvdriver.Driver instance")
}

func errMissingFunction(op, kind string) error {
	return apperr.Newf(apperr.PhaseGet, apperr.ReasonInvalidInput, op, "missing %s function", kind)
}

func errFunctionParams(op string) error {
	return apperr.Newf(apperr.PhaseGet, apperr.ReasonInvalidInput, op, "missing function params")
}
