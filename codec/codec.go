// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package codec defines how request and response payloads are turned into bytes.
//
// A Codec is stateless and safe for concurrent use. The proxy serializes the
// request argument with the codec bound to the actor (or overridden per proxy)
// and records the codec name on the envelope so the peer can decode it.
package codec

import (
	"fmt"
	"sync"

	"github.com/blueteethyl1986/Redola/errors"
)

// Codec converts payloads to and from their wire representation.
type Codec interface {
	// Name identifies the codec on the wire.
	Name() string
	// Serialize encodes the given value.
	Serialize(v any) ([]byte, error)
	// Deserialize decodes data into target which must be a non-nil pointer.
	Deserialize(data []byte, target any) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Codec{}
)

func init() {
	Register(NewCBOR())
	Register(NewJSON())
	Register(NewProto())
}

// Register makes a codec available to Lookup under its name.
// A codec registered with an existing name replaces the previous one.
func Register(c Codec) {
	registryMu.Lock()
	registry[c.Name()] = c
	registryMu.Unlock()
}

// Lookup returns the codec registered under the given name.
func Lookup(name string) (Codec, error) {
	registryMu.RLock()
	c, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.NewErrSerialization(fmt.Errorf("codec=(%s) is not registered", name))
	}
	return c, nil
}

// Default returns the codec used when none is configured.
func Default() Codec {
	return NewCBOR()
}
