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

package testkit

import (
	"context"

	gerrors "github.com/blueteethyl1986/Redola/errors"
	"github.com/blueteethyl1986/Redola/proxy"
)

// FaultInvalidOrder is the fault code of an order without items
const FaultInvalidOrder = "invalid_order"

// HelloRequest is the request of HelloService.Hello
type HelloRequest struct {
	Text string
}

// HelloResponse is the response of HelloService.Hello
type HelloResponse struct {
	Text string
}

// Hello10000Request is the request of HelloService.Hello10000
type Hello10000Request struct {
	Text string
}

// Hello10000Response is the response of HelloService.Hello10000
type Hello10000Response struct {
	Text string
}

// AddRequest is the request of CalcService.Add
type AddRequest struct {
	X int
	Y int
}

// AddResponse is the response of CalcService.Add
type AddResponse struct {
	Result int
}

// Order is a purchase order
type Order struct {
	OrderID  string
	ItemID   string
	BuyCount int
}

// PlaceOrderRequest is the request of OrderService.PlaceOrder
type PlaceOrderRequest struct {
	Contract *Order
}

// PlaceOrderResponse is the response of OrderService.PlaceOrder
type PlaceOrderResponse struct {
	Order     *Order
	ErrorCode int
}

// HelloService echoes texts
type HelloService struct {
	proxy.ServiceProxy

	Hello      func(ctx context.Context, req *HelloRequest) (*HelloResponse, error)
	Hello10000 func(ctx context.Context, req *Hello10000Request) (*Hello10000Response, error)
}

// CalcService adds numbers
type CalcService struct {
	proxy.ServiceProxy

	Add func(ctx context.Context, req *AddRequest) (*AddResponse, error)
}

// OrderService places orders
type OrderService struct {
	proxy.ServiceProxy `rpc:"OrderService"`

	PlaceOrder func(req *PlaceOrderRequest) (*PlaceOrderResponse, error)
}

// RegisterSampleServices serves HelloService, CalcService and OrderService.
// An order without items is answered with a FaultInvalidOrder fault.
func RegisterSampleServices(s *Server) {
	Register(s, "HelloService", "Hello", func(_ context.Context, req *HelloRequest) (*HelloResponse, error) {
		return &HelloResponse{Text: req.Text}, nil
	})

	Register(s, "HelloService", "Hello10000", func(_ context.Context, req *Hello10000Request) (*Hello10000Response, error) {
		return &Hello10000Response{Text: req.Text}, nil
	})

	Register(s, "CalcService", "Add", func(_ context.Context, req *AddRequest) (*AddResponse, error) {
		return &AddResponse{Result: req.X + req.Y}, nil
	})

	Register(s, "OrderService", "PlaceOrder", func(_ context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
		if req.Contract == nil || req.Contract.BuyCount <= 0 {
			return nil, gerrors.NewRemoteInvocationError(FaultInvalidOrder, "an order needs at least one item", nil)
		}
		return &PlaceOrderResponse{Order: req.Contract}, nil
	})
}
