package grpc

import (
	"context"

	"chargeline/internal/ledger"
	"chargeline/internal/model"

	"google.golang.org/grpc"
)

const (
	chargeServiceName = "chargeline.v1.ChargeService"
	eventServiceName  = "chargeline.v1.EventService"

	resetMethod   = "/" + chargeServiceName + "/Reset"
	chargeMethod  = "/" + chargeServiceName + "/Charge"
	publishMethod = "/" + eventServiceName + "/Publish"
)

type Empty struct{}

type EventRequest struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload"`
}

type EventResponse struct {
	Success bool `json:"success"`
}

type ChargeServiceServer interface {
	Reset(ctx context.Context, req *model.ResetRequest) (*Empty, error)
	Charge(ctx context.Context, req *model.ChargeRequest) (*ledger.ChargeResult, error)
}

type EventServiceServer interface {
	Publish(ctx context.Context, req *EventRequest) (*EventResponse, error)
}

var chargeServiceDesc = grpc.ServiceDesc{
	ServiceName: chargeServiceName,
	HandlerType: (*ChargeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Reset",
			Handler: unaryHandler(resetMethod, func(srv any, ctx context.Context, req *model.ResetRequest) (any, error) {
				return srv.(ChargeServiceServer).Reset(ctx, req)
			}),
		},
		{
			MethodName: "Charge",
			Handler: unaryHandler(chargeMethod, func(srv any, ctx context.Context, req *model.ChargeRequest) (any, error) {
				return srv.(ChargeServiceServer).Charge(ctx, req)
			}),
		},
	},
	Streams: []grpc.StreamDesc{},
}

var eventServiceDesc = grpc.ServiceDesc{
	ServiceName: eventServiceName,
	HandlerType: (*EventServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Publish",
			Handler: unaryHandler(publishMethod, func(srv any, ctx context.Context, req *EventRequest) (any, error) {
				return srv.(EventServiceServer).Publish(ctx, req)
			}),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// unaryHandler adapts a typed call into the method handler signature grpc-go
// dispatches to, honouring any configured interceptor.
func unaryHandler[Req any](fullMethod string, call func(srv any, ctx context.Context, req *Req) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ChargeClient calls a remote ChargeService.
type ChargeClient struct {
	cc grpc.ClientConnInterface
}

func NewChargeClient(cc grpc.ClientConnInterface) *ChargeClient {
	return &ChargeClient{cc: cc}
}

func (c *ChargeClient) Reset(ctx context.Context, req *model.ResetRequest, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, resetMethod, req, new(Empty), withCodec(opts)...)
}

func (c *ChargeClient) Charge(ctx context.Context, req *model.ChargeRequest, opts ...grpc.CallOption) (*ledger.ChargeResult, error) {
	out := new(ledger.ChargeResult)
	if err := c.cc.Invoke(ctx, chargeMethod, req, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}
