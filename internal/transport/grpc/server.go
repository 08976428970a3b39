package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"

	"chargeline/internal/ledger"
	"chargeline/internal/model"
	"chargeline/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// EventSink receives events published to the EventService. With the gRPC bus
// the server is the journal worker.
type EventSink interface {
	Record(ctx context.Context, event model.ChargeEvent) error
}

type Server struct {
	svc  service.ChargeService
	sink EventSink
	srv  *grpc.Server
	addr string
}

// NewServer serves the ChargeService and, when sink is non-nil, the EventService.
func NewServer(addr string, svc service.ChargeService, sink EventSink) *Server {
	s := &Server{svc: svc, sink: sink, addr: addr, srv: grpc.NewServer()}
	s.srv.RegisterService(&chargeServiceDesc, s)
	if sink != nil {
		s.srv.RegisterService(&eventServiceDesc, s)
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC server is running", "addr", lis.Addr().String())
	return s.srv.Serve(lis)
}

func (s *Server) Stop(ctx context.Context) error {
	s.srv.GracefulStop()
	return nil
}

func (s *Server) Reset(ctx context.Context, req *model.ResetRequest) (*Empty, error) {
	if err := s.svc.Reset(ctx, *req); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *Server) Charge(ctx context.Context, req *model.ChargeRequest) (*ledger.ChargeResult, error) {
	res, err := s.svc.Charge(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return res, nil
}

func (s *Server) Publish(ctx context.Context, req *EventRequest) (*EventResponse, error) {
	var event model.ChargeEvent
	if err := json.Unmarshal(req.Payload, &event); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode %s payload: %v", req.Topic, err)
	}
	if err := s.sink.Record(ctx, event); err != nil {
		slog.Error("grpc: failed to record charge event", "topic", req.Topic, "account", event.Account, "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &EventResponse{Success: true}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
