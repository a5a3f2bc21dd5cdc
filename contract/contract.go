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

// Package contract describes service contracts.
//
// A contract is a struct whose exported function-typed fields are the
// service methods:
//
//	type CalcService struct {
//		proxy.ServiceProxy `rpc:"calc"`
//
//		Add func(ctx context.Context, req *AddRequest) (*AddResponse, error)
//		Sub func(req *SubRequest) (*SubResponse, error) `rpc:"subtract"`
//	}
//
// Every method takes a pointer request, optionally preceded by a
// context.Context, and returns a pointer response and an error. The `rpc`
// tag renames a method on the wire. On an embedded field it names the
// service, which otherwise defaults to the struct type name.
package contract

import (
	"context"
	"fmt"
	"reflect"

	"github.com/blueteethyl1986/Redola/errors"
)

// TagName is the struct tag key used to rename services and methods.
const TagName = "rpc"

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// MethodDescriptor describes one contract method.
type MethodDescriptor struct {
	// Name is the method name sent on the wire
	Name string
	// Field is the name of the struct field holding the method
	Field string
	// Index is the index of the field in the contract struct
	Index int
	// Type is the function type of the field
	Type reflect.Type
	// RequestType is the pointer type of the request argument
	RequestType reflect.Type
	// ResponseType is the pointer type of the response value
	ResponseType reflect.Type
	// WithContext is true when the first argument is a context.Context
	WithContext bool
}

// NewRequest allocates a zero request value
func (m MethodDescriptor) NewRequest() reflect.Value {
	return reflect.New(m.RequestType.Elem())
}

// NewResponse allocates a zero response value
func (m MethodDescriptor) NewResponse() reflect.Value {
	return reflect.New(m.ResponseType.Elem())
}

// ServiceDescriptor describes a service contract. It is immutable.
type ServiceDescriptor struct {
	name    string
	typ     reflect.Type
	methods []MethodDescriptor
	index   map[string]int
}

// Describe builds the descriptor of the given contract type.
// Pointer types are dereferenced. Any field that is not a supported method
// makes Describe fail with ErrUnsupportedContract.
func Describe(contract reflect.Type) (*ServiceDescriptor, error) {
	if contract == nil {
		return nil, errors.NewErrInvalidArgument("contract type is nil")
	}

	if contract.Kind() == reflect.Pointer {
		contract = contract.Elem()
	}

	if contract.Kind() != reflect.Struct {
		return nil, errors.NewErrUnsupportedContract(contract.String(), "contract must be a struct of function fields")
	}

	descriptor := &ServiceDescriptor{
		name:  contract.Name(),
		typ:   contract,
		index: make(map[string]int),
	}

	for i := range contract.NumField() {
		field := contract.Field(i)
		if !field.IsExported() {
			continue
		}

		if field.Anonymous {
			if name := field.Tag.Get(TagName); name != "" {
				descriptor.name = name
			}
			continue
		}

		method, err := describeMethod(field)
		if err != nil {
			return nil, errors.NewErrUnsupportedContract(contract.String(), err.Error())
		}

		if _, ok := descriptor.index[method.Name]; ok {
			return nil, errors.NewErrUnsupportedContract(contract.String(), fmt.Sprintf("method %s is declared twice", method.Name))
		}

		descriptor.index[method.Name] = len(descriptor.methods)
		descriptor.methods = append(descriptor.methods, method)
	}

	if descriptor.name == "" {
		return nil, errors.NewErrUnsupportedContract(contract.String(), "anonymous contract types need a service name")
	}

	if len(descriptor.methods) == 0 {
		return nil, errors.NewErrUnsupportedContract(contract.String(), "contract declares no method")
	}
	return descriptor, nil
}

// DescribeOf builds the descriptor of the contract type T.
func DescribeOf[T any]() (*ServiceDescriptor, error) {
	return Describe(reflect.TypeFor[T]())
}

// Name returns the service name
func (x *ServiceDescriptor) Name() string {
	return x.name
}

// Type returns the contract struct type
func (x *ServiceDescriptor) Type() reflect.Type {
	return x.typ
}

// Methods returns a copy of the method descriptors in declaration order
func (x *ServiceDescriptor) Methods() []MethodDescriptor {
	methods := make([]MethodDescriptor, len(x.methods))
	copy(methods, x.methods)
	return methods
}

// Method returns the descriptor of the method with the given wire name
func (x *ServiceDescriptor) Method(name string) (MethodDescriptor, bool) {
	i, ok := x.index[name]
	if !ok {
		return MethodDescriptor{}, false
	}
	return x.methods[i], true
}

// WithName returns a copy of the descriptor using the given service name.
func (x *ServiceDescriptor) WithName(name string) *ServiceDescriptor {
	clone := *x
	clone.name = name
	return &clone
}

func describeMethod(field reflect.StructField) (MethodDescriptor, error) {
	typ := field.Type
	if typ.Kind() != reflect.Func {
		return MethodDescriptor{}, fmt.Errorf("field %s is not a function", field.Name)
	}

	if typ.IsVariadic() {
		return MethodDescriptor{}, fmt.Errorf("method %s is variadic", field.Name)
	}

	method := MethodDescriptor{
		Name:  field.Name,
		Field: field.Name,
		Index: field.Index[0],
		Type:  typ,
	}

	if name := field.Tag.Get(TagName); name != "" {
		method.Name = name
	}

	switch typ.NumIn() {
	case 1:
		method.RequestType = typ.In(0)
	case 2:
		if typ.In(0) != contextType {
			return MethodDescriptor{}, fmt.Errorf("method %s must take a context.Context first", field.Name)
		}
		method.WithContext = true
		method.RequestType = typ.In(1)
	default:
		return MethodDescriptor{}, fmt.Errorf("method %s must take a single request argument", field.Name)
	}

	if method.RequestType.Kind() != reflect.Pointer {
		return MethodDescriptor{}, fmt.Errorf("method %s request must be a pointer, got %s", field.Name, method.RequestType)
	}

	if typ.NumOut() != 2 || typ.Out(1) != errorType {
		return MethodDescriptor{}, fmt.Errorf("method %s must return a response and an error", field.Name)
	}

	method.ResponseType = typ.Out(0)
	if method.ResponseType.Kind() != reflect.Pointer {
		return MethodDescriptor{}, fmt.Errorf("method %s response must be a pointer, got %s", field.Name, method.ResponseType)
	}
	return method, nil
}
