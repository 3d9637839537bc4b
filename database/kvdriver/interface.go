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

import (
	libkvt "github.com/traktion/anttp/database/kvtypes"
)

// KVDriver re-exports the shared driver contract under this package's
// own name, the way the rest of the database/kv* packages refer to it
// (kvtable.New takes a kvdriver.KVDriver[K, M]).
type KVDriver[K comparable, M any] = libkvt.KVDriver[K, M]

// FctWalk re-exports kvtypes.FctWalk so Driver's Walk method can be
// declared without every call site importing kvtypes directly.
type FctWalk[K comparable, M any] = libkvt.FctWalk[K, M]

type FuncNew[K comparable, M any] func() libkvt.KVDriver[K, M]
type FuncGet[K comparable, M any] func(key K) (M, error)
type FuncSet[K comparable, M any] func(key K, model M) error
type FuncDel[K comparable] func(key K) error
type FuncList[K comparable, M any] func() ([]K, error)
type FuncSearch[K comparable] func(pattern K) ([]K, error)
type FuncWalk[K comparable, M any] func(fct libkvt.FctWalk[K, M]) error

// Driver adapts a set of plain closures into a full kvtypes.KVDriver,
// so a caller can stand up a driver over any backing store (an
// in-memory map, a bbolt bucket, a remote register) without writing a
// new named type for each one. Cmp carries the comparison functions a
// backing store without its own pattern-matching can fall back to.
type Driver[K comparable, M any] struct {
	Cmp Compare[K]

	FctNew    FuncNew[K, M]
	FctGet    FuncGet[K, M]
	FctSet    FuncSet[K, M]
	FctDel    FuncDel[K]
	FctList   FuncList[K, M]
	FctSearch FuncSearch[K]
	FctWalk   FuncWalk[K, M] // optional
}

// New builds a driver from a comparison strategy plus the closures a
// backing store supplies for each operation.
func New[K comparable, M any](cmp Compare[K], fn FuncNew[K, M], fg FuncGet[K, M], fs FuncSet[K, M], fd FuncDel[K], fl FuncList[K, M], fr FuncSearch[K], fw FuncWalk[K, M]) libkvt.KVDriver[K, M] {
	return &Driver[K, M]{
		Cmp:       cmp,
		FctNew:    fn,
		FctGet:    fg,
		FctSet:    fs,
		FctDel:    fd,
		FctList:   fl,
		FctSearch: fr,
		FctWalk:   fw,
	}
}
