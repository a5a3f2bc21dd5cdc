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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection is returned when the transport cannot be established or
	// is lost while calls are in flight.
	ErrConnection = errors.New("connection failure")

	// ErrTransport is returned when a frame cannot be written to or read from the connection.
	ErrTransport = errors.New("transport failure")

	// ErrInvalidArgument is returned when a nil argument is passed to a proxy method
	// or a required parameter is missing.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedContract is returned when a service contract has a method shape
	// that cannot be proxied.
	ErrUnsupportedContract = errors.New("unsupported service contract")

	// ErrDuplicateRegistration is returned when the same service contract is registered twice on an actor.
	ErrDuplicateRegistration = errors.New("service already registered")

	// ErrServiceNotRegistered is returned when a call targets a service the actor does not know.
	ErrServiceNotRegistered = errors.New("service not registered")

	// ErrCallTimeout is returned when no response arrived within the call timeout.
	ErrCallTimeout = errors.New("call timed out")

	// ErrRemoteInvocation is returned when the remote peer answered with a fault.
	ErrRemoteInvocation = errors.New("remote invocation failed")

	// ErrActorShutdown is returned when a call is attempted on, or still pending in, a stopped actor.
	ErrActorShutdown = errors.New("actor is shut down")

	// ErrActorShuttingDown is returned when the actor is in the middle of a shutdown.
	ErrActorShuttingDown = errors.New("actor is shutting down")

	// ErrActorNotRunning is returned when a call is attempted before the actor has booted.
	ErrActorNotRunning = errors.New("actor is not running")

	// ErrSerialization is returned when a payload or an envelope cannot be encoded or decoded.
	ErrSerialization = errors.New("serialization failure")

	// ErrDuplicateCorrelationID is returned when a pending call with the same correlation id already exists.
	ErrDuplicateCorrelationID = errors.New("duplicate correlation id")

	// ErrInvalidConfig is returned when an option set fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFrameTooLarge is returned when a frame exceeds the configured maximum frame size.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// NewErrConnection wraps an error with ErrConnection.
func NewErrConnection(err error) error {
	return errors.Join(ErrConnection, err)
}

// NewErrTransport wraps an error with ErrTransport.
func NewErrTransport(err error) error {
	return errors.Join(ErrTransport, err)
}

// NewErrInvalidArgument formats an ErrInvalidArgument with the given reason.
func NewErrInvalidArgument(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, reason)
}

// NewErrUnsupportedContract formats an ErrUnsupportedContract with the given contract and reason.
func NewErrUnsupportedContract(contract, reason string) error {
	return fmt.Errorf("contract=(%s) %w: %s", contract, ErrUnsupportedContract, reason)
}

// NewErrDuplicateRegistration formats an ErrDuplicateRegistration with the given service name.
func NewErrDuplicateRegistration(service string) error {
	return fmt.Errorf("service=(%s) %w", service, ErrDuplicateRegistration)
}

// NewErrServiceNotRegistered formats an ErrServiceNotRegistered with the given service name.
func NewErrServiceNotRegistered(service string) error {
	return fmt.Errorf("service=(%s) %w", service, ErrServiceNotRegistered)
}

// NewErrCallTimeout formats an ErrCallTimeout with the given method and timeout.
func NewErrCallTimeout(method string, timeout fmt.Stringer) error {
	return fmt.Errorf("method=(%s) timeout=(%s) %w", method, timeout, ErrCallTimeout)
}

// NewErrSerialization wraps an error with ErrSerialization.
func NewErrSerialization(err error) error {
	return errors.Join(ErrSerialization, err)
}

// NewErrDuplicateCorrelationID formats an ErrDuplicateCorrelationID with the given id.
func NewErrDuplicateCorrelationID(id string) error {
	return fmt.Errorf("correlation id=(%s) %w", id, ErrDuplicateCorrelationID)
}

// NewErrInvalidConfig wraps an error with ErrInvalidConfig.
func NewErrInvalidConfig(err error) error {
	return errors.Join(ErrInvalidConfig, err)
}

// RemoteInvocationError carries the fault returned by the remote peer.
// It matches ErrRemoteInvocation with errors.Is.
type RemoteInvocationError struct {
	// Code is the application error code set by the peer
	Code string
	// Message is the human readable description of the fault
	Message string
	// Detail holds optional encoded fault details
	Detail []byte
}

// enforce compilation error
var _ error = (*RemoteInvocationError)(nil)

// NewRemoteInvocationError creates an instance of RemoteInvocationError
func NewRemoteInvocationError(code, message string, detail []byte) *RemoteInvocationError {
	return &RemoteInvocationError{
		Code:    code,
		Message: message,
		Detail:  detail,
	}
}

// Error implements the standard error interface
func (e *RemoteInvocationError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", ErrRemoteInvocation, e.Message)
	}
	return fmt.Sprintf("%s: code=(%s) %s", ErrRemoteInvocation, e.Code, e.Message)
}

func (e *RemoteInvocationError) Unwrap() error {
	return ErrRemoteInvocation
}

// ShutdownError is used to fail pending calls when the actor stops.
// It always matches ErrActorShutdown and also matches its cause, given
// a cause such as ErrConnection when the stop was triggered by the transport.
type ShutdownError struct {
	cause error
}

// enforce compilation error
var _ error = (*ShutdownError)(nil)

// NewShutdownError creates an instance of ShutdownError
func NewShutdownError(cause error) *ShutdownError {
	return &ShutdownError{cause: cause}
}

// Error implements the standard error interface
func (e *ShutdownError) Error() string {
	if e.cause == nil {
		return ErrActorShutdown.Error()
	}
	return fmt.Sprintf("%s: %v", ErrActorShutdown, e.cause)
}

func (e *ShutdownError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrActorShutdown}
	}
	return []error{ErrActorShutdown, e.cause}
}
