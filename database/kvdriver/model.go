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

func (o *Driver[K, M]) New() KVDriver[K, M] {
	if o != nil && o.FctNew != nil {
		return o.FctNew()
	}
	return o
}

func (o *Driver[K, M]) Del(key K) error {
	if o == nil {
		return errBadInstance("kvdriver.Del")
	} else if o.FctDel == nil {
		return errFunctionParams("kvdriver.Del")
	} else {
		return o.FctDel(key)
	}
}

func (o *Driver[K, M]) Search(pattern K) ([]K, error) {
	if o == nil {
		return nil, errBadInstance("kvdriver.Search")
	} else if o.FctSearch != nil {
		return o.FctSearch(pattern)
	}

	// No explicit search closure: fall back to an exact-match filter
	// over List, for drivers that can't do pattern matching
	// server-side.
	l, e := o.List()
	if e != nil {
		return nil, e
	}

	var out []K
	for _, k := range l {
		if k == pattern {
			out = append(out, k)
		}
	}
	return out, nil
}

func (o *Driver[K, M]) Get(key K, model *M) error {
	if o == nil {
		return errBadInstance("kvdriver.Get")
	} else if o.FctGet == nil {
		return errMissingFunction("kvdriver.Get", "get")
	} else {
		m, e := o.FctGet(key)
		*model = m
		return e
	}
}

func (o *Driver[K, M]) Set(key K, model M) error {
	if o == nil {
		return errBadInstance("kvdriver.Set")
	} else if o.FctSet == nil {
		return errMissingFunction("kvdriver.Set", "set")
	} else {
		return o.FctSet(key, model)
	}
}

func (o *Driver[K, M]) List() ([]K, error) {
	if o == nil {
		return nil, errBadInstance("kvdriver.List")
	} else if o.FctList == nil {
		return nil, errMissingFunction("kvdriver.List", "list")
	} else {
		return o.FctList()
	}
}

func (o *Driver[K, M]) Walk(fct FctWalk[K, M]) error {
	if o == nil {
		return errBadInstance("kvdriver.Walk")
	} else if fct == nil {
		return errFunctionParams("kvdriver.Walk")
	} else if o.FctWalk == nil {
		return o.fakeWalk(fct)
	} else {
		return o.FctWalk(fct)
	}
}

func (o *Driver[K, M]) fakeWalk(fct FctWalk[K, M]) error {
	if l, e := o.List(); e != nil {
		return e
	} else {
		for _, k := range l {
			var m = *(new(M))

			if er := o.Get(k, &m); er != nil {
				return er
			}

			if !fct(k, m) {
				return nil
			}
		}
	}

	return nil
}
