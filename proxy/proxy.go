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

// Package proxy turns service contracts into remote calls.
//
// CreateServiceProxy fills every method field of a contract struct with a
// function that encodes the request, hands an envelope to an Invoker
// (usually an actor.Actor) and decodes the correlated response:
//
//	calc, err := proxy.CreateServiceProxy[CalcService](client, "server")
//	resp, err := calc.Add(ctx, &AddRequest{X: 3, Y: 4})
//
// Call is the statically typed alternative that needs no generated method.
package proxy

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/blueteethyl1986/Redola/codec"
	"github.com/blueteethyl1986/Redola/contract"
	"github.com/blueteethyl1986/Redola/errors"
	"github.com/blueteethyl1986/Redola/future"
	"github.com/blueteethyl1986/Redola/message"
)

// Invoker sends request envelopes and returns the correlated response.
type Invoker interface {
	// Invoke blocks until the response for req arrives or the call fails.
	Invoke(ctx context.Context, endpoint string, req *message.RequestEnvelope) (*message.ResponseEnvelope, error)
	// Codec returns the default payload codec.
	Codec() codec.Codec
}

var (
	serviceProxyType = reflect.TypeFor[ServiceProxy]()
	errorType        = reflect.TypeFor[error]()
	descriptors      sync.Map
)

// ServiceProxy binds a contract to an invoker and an endpoint.
// Contracts embed it so that generated proxies can be registered with an actor.
type ServiceProxy struct {
	descriptor *contract.ServiceDescriptor
	invoker    Invoker
	endpoint   string
	codec      codec.Codec
	timeout    time.Duration
	metadata   map[string]string
}

// Proxy returns the ServiceProxy itself. It is promoted to the contract
// type embedding it.
func (p *ServiceProxy) Proxy() *ServiceProxy {
	return p
}

// Descriptor returns the contract descriptor
func (p *ServiceProxy) Descriptor() *contract.ServiceDescriptor {
	return p.descriptor
}

// Invoker returns the bound invoker
func (p *ServiceProxy) Invoker() Invoker {
	return p.invoker
}

// Endpoint returns the remote endpoint name
func (p *ServiceProxy) Endpoint() string {
	return p.endpoint
}

// Codec returns the payload codec
func (p *ServiceProxy) Codec() codec.Codec {
	return p.codec
}

// Bound reports whether the proxy was created by CreateServiceProxy
func (p *ServiceProxy) Bound() bool {
	return p != nil && p.invoker != nil && p.descriptor != nil
}

// CreateServiceProxy returns a new contract value of type T whose methods call
// the given endpoint through invoker. T must be a struct embedding
// ServiceProxy, see the contract package for the accepted method shapes.
func CreateServiceProxy[T any](invoker Invoker, endpoint string, opts ...Option) (*T, error) {
	if invoker == nil {
		return nil, errors.NewErrInvalidArgument("invoker is nil")
	}

	if endpoint == "" {
		return nil, errors.NewErrInvalidArgument("endpoint is required")
	}

	cfg := &config{codec: invoker.Codec()}
	for _, opt := range opts {
		opt.Apply(cfg)
	}

	if cfg.codec == nil {
		cfg.codec = codec.Default()
	}

	typ := reflect.TypeFor[T]()
	descriptor, err := describe(typ)
	if err != nil {
		return nil, err
	}

	if cfg.serviceName != "" {
		descriptor = descriptor.WithName(cfg.serviceName)
	}

	field, ok := embeddedProxyField(typ)
	if !ok {
		return nil, errors.NewErrUnsupportedContract(typ.String(), "contract must embed proxy.ServiceProxy")
	}

	service := reflect.New(typ)
	sp := service.Elem().Field(field).Addr().Interface().(*ServiceProxy)
	*sp = ServiceProxy{
		descriptor: descriptor,
		invoker:    invoker,
		endpoint:   endpoint,
		codec:      cfg.codec,
		timeout:    cfg.timeout,
		metadata:   cfg.metadata,
	}

	for _, method := range descriptor.Methods() {
		service.Elem().Field(method.Index).Set(reflect.MakeFunc(method.Type, sp.methodFunc(method)))
	}

	return service.Interface().(*T), nil
}

// Call invokes method on the service bound to p with a statically typed request.
func Call[Req, Resp any](ctx context.Context, p *ServiceProxy, method string, req *Req) (*Resp, error) {
	if !p.Bound() {
		return nil, errors.NewErrInvalidArgument("service proxy is not bound")
	}

	descriptor, ok := p.descriptor.Method(method)
	if !ok {
		return nil, errors.NewErrInvalidArgument(fmt.Sprintf("method %s is not declared by %s", method, p.descriptor.Name()))
	}

	if descriptor.RequestType != reflect.TypeFor[*Req]() || descriptor.ResponseType != reflect.TypeFor[*Resp]() {
		return nil, errors.NewErrInvalidArgument(fmt.Sprintf("method %s is %s", method, descriptor.Type))
	}

	if req == nil {
		return nil, errors.NewErrInvalidArgument("request is nil")
	}

	resp := new(Resp)
	if err := p.invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CallAsync runs Call on a new goroutine and returns its future outcome.
func CallAsync[Req, Resp any](ctx context.Context, p *ServiceProxy, method string, req *Req) future.Future[*Resp] {
	return future.New(func() (*Resp, error) {
		return Call[Req, Resp](ctx, p, method, req)
	})
}

func (p *ServiceProxy) methodFunc(method contract.MethodDescriptor) func([]reflect.Value) []reflect.Value {
	fail := func(err error) []reflect.Value {
		return []reflect.Value{reflect.Zero(method.ResponseType), reflect.ValueOf(&err).Elem()}
	}

	return func(args []reflect.Value) []reflect.Value {
		ctx := context.Background()
		arg := args[0]
		if method.WithContext {
			if !arg.IsNil() {
				ctx = arg.Interface().(context.Context)
			}
			arg = args[1]
		}

		if arg.IsNil() {
			return fail(errors.NewErrInvalidArgument(fmt.Sprintf("%s.%s request is nil", p.descriptor.Name(), method.Name)))
		}

		resp := method.NewResponse()
		if err := p.invoke(ctx, method.Name, arg.Interface(), resp.Interface()); err != nil {
			return fail(err)
		}
		return []reflect.Value{resp, reflect.Zero(errorType)}
	}
}

func (p *ServiceProxy) invoke(ctx context.Context, method string, req, resp any) error {
	payload, err := p.codec.Serialize(req)
	if err != nil {
		return err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	envelope := &message.RequestEnvelope{
		CorrelationID: message.NewCorrelationID(),
		Endpoint:      p.endpoint,
		Service:       p.descriptor.Name(),
		Method:        method,
		Codec:         p.codec.Name(),
		Payload:       payload,
		Metadata:      p.metadata,
	}

	response, err := p.invoker.Invoke(ctx, p.endpoint, envelope)
	if err != nil {
		return err
	}

	if fault := response.Fault; fault != nil {
		return errors.NewRemoteInvocationError(fault.Code, fault.Message, fault.Detail)
	}
	return p.codec.Deserialize(response.Payload, resp)
}

func describe(typ reflect.Type) (*contract.ServiceDescriptor, error) {
	if cached, ok := descriptors.Load(typ); ok {
		return cached.(*contract.ServiceDescriptor), nil
	}

	descriptor, err := contract.Describe(typ)
	if err != nil {
		return nil, err
	}

	actual, _ := descriptors.LoadOrStore(typ, descriptor)
	return actual.(*contract.ServiceDescriptor), nil
}

func embeddedProxyField(typ reflect.Type) (int, bool) {
	if typ.Kind() != reflect.Struct {
		return 0, false
	}

	for i := range typ.NumField() {
		field := typ.Field(i)
		if field.Anonymous && field.Type == serviceProxyType {
			return i, true
		}
	}
	return 0, false
}
