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

package actor

import (
	"reflect"
	"slices"
	"strings"

	gerrors "github.com/blueteethyl1986/Redola/errors"
	"github.com/blueteethyl1986/Redola/proxy"
)

// RpcService is a service proxy that can be registered with an actor.
// Every contract embedding proxy.ServiceProxy implements it.
type RpcService interface {
	Proxy() *proxy.ServiceProxy
}

// RegisterRpcService records a service proxy bound to this actor.
// The registry is keyed by contract type, a second registration of the same
// contract fails with ErrDuplicateRegistration and keeps the first one.
func (a *Actor) RegisterRpcService(service RpcService) error {
	sp, err := a.boundProxy(service)
	if err != nil {
		return err
	}

	if a.State() == ShuttingDown {
		return gerrors.ErrActorShuttingDown
	}

	// a.mu orders the insert against the registry being cleared by Shutdown
	a.mu.RLock()
	defer a.mu.RUnlock()

	descriptor := sp.Descriptor()
	a.servicesMu.Lock()
	defer a.servicesMu.Unlock()
	if _, ok := a.services[descriptor.Type()]; ok {
		return gerrors.NewErrDuplicateRegistration(descriptor.Name())
	}

	a.services[descriptor.Type()] = service
	a.serviceNames[descriptor.Name()]++
	a.logger.Debugf("Service (%s) registered with Actor (%s)", descriptor.Name(), a.name)
	return nil
}

// DeregisterRpcService removes a service proxy from the registry.
func (a *Actor) DeregisterRpcService(service RpcService) error {
	sp, err := a.boundProxy(service)
	if err != nil {
		return err
	}

	descriptor := sp.Descriptor()
	a.servicesMu.Lock()
	defer a.servicesMu.Unlock()
	if _, ok := a.services[descriptor.Type()]; !ok {
		return gerrors.NewErrServiceNotRegistered(descriptor.Name())
	}

	delete(a.services, descriptor.Type())
	a.forgetName(descriptor.Name())
	return nil
}

// RpcServices returns the registered services sorted by service name
func (a *Actor) RpcServices() []RpcService {
	a.servicesMu.RLock()
	services := make([]RpcService, 0, len(a.services))
	for _, service := range a.services {
		services = append(services, service)
	}
	a.servicesMu.RUnlock()

	slices.SortFunc(services, func(x, y RpcService) int {
		return strings.Compare(x.Proxy().Descriptor().Name(), y.Proxy().Descriptor().Name())
	})
	return services
}

// RpcService returns the service registered for the given contract type.
// Pointer types are dereferenced.
func (a *Actor) RpcService(contract reflect.Type) (RpcService, bool) {
	if contract == nil {
		return nil, false
	}

	if contract.Kind() == reflect.Pointer {
		contract = contract.Elem()
	}

	a.servicesMu.RLock()
	defer a.servicesMu.RUnlock()
	service, ok := a.services[contract]
	return service, ok
}

// Service returns the service registered for the contract T
func Service[T any](a *Actor) (*T, bool) {
	service, ok := a.RpcService(reflect.TypeFor[T]())
	if !ok {
		return nil, false
	}

	typed, ok := any(service).(*T)
	return typed, ok
}

func (a *Actor) registered(service string) bool {
	a.servicesMu.RLock()
	defer a.servicesMu.RUnlock()
	return a.serviceNames[service] > 0
}

func (a *Actor) clearServices() {
	a.servicesMu.Lock()
	clear(a.services)
	clear(a.serviceNames)
	a.servicesMu.Unlock()
}

// forgetName must be called with servicesMu held
func (a *Actor) forgetName(name string) {
	a.serviceNames[name]--
	if a.serviceNames[name] <= 0 {
		delete(a.serviceNames, name)
	}
}

func (a *Actor) boundProxy(service RpcService) (*proxy.ServiceProxy, error) {
	if service == nil {
		return nil, gerrors.NewErrInvalidArgument("service is nil")
	}

	if value := reflect.ValueOf(service); value.Kind() == reflect.Pointer && value.IsNil() {
		return nil, gerrors.NewErrInvalidArgument("service is nil")
	}

	sp := service.Proxy()
	if !sp.Bound() {
		return nil, gerrors.NewErrInvalidArgument("service is not a proxy created by proxy.CreateServiceProxy")
	}

	if invoker, ok := sp.Invoker().(*Actor); !ok || invoker != a {
		return nil, gerrors.NewErrInvalidArgument("service is bound to another invoker")
	}
	return sp, nil
}
