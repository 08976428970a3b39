package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"chargeline/internal/model"
	"chargeline/internal/service"

	"github.com/nats-io/nats.go"
)

const queueGroup = "chargeline_group"

type errorReply struct {
	Error string `json:"error"`
}

// Handler serves charge and reset commands over NATS. A command sent with a
// reply subject (nc.Request) gets the JSON result or {"error": ...} back.
type Handler struct {
	svc  service.ChargeService
	nc   *nats.Conn
	subs []*nats.Subscription
}

func NewHandler(svc service.ChargeService, nc *nats.Conn) *Handler {
	return &Handler{svc: svc, nc: nc}
}

// Start subscribes to command subjects and blocks until ctx is cancelled (graceful shutdown).
func (h *Handler) Start(ctx context.Context) error {
	commands := map[string]func(context.Context, []byte) []byte{
		model.SubjectChargeCommand: h.handleCharge,
		model.SubjectResetCommand:  h.handleReset,
	}
	for subject, handle := range commands {
		handle := handle
		sub, err := h.nc.QueueSubscribe(subject, queueGroup, func(m *nats.Msg) {
			reply := handle(ctx, m.Data)
			if m.Reply == "" {
				return
			}
			if err := m.Respond(reply); err != nil {
				slog.Error("nats: failed to respond", "subject", m.Subject, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("nats: subscribe %s: %w", subject, err)
		}
		h.subs = append(h.subs, sub)
	}

	slog.Info("NATS command handler is running")

	<-ctx.Done()
	slog.Info("NATS command handler shutting down, draining subscriptions...")

	for _, s := range h.subs {
		_ = s.Drain()
	}
	return nil
}

func (h *Handler) Stop(ctx context.Context) error {
	for _, s := range h.subs {
		_ = s.Unsubscribe()
	}
	return nil
}

func (h *Handler) handleCharge(ctx context.Context, data []byte) []byte {
	var req model.ChargeRequest
	if err := decodeCommand(data, &req); err != nil {
		slog.Error("nats: failed to unmarshal charge command", "error", err)
		return encodeReply(errorReply{Error: "invalid_json"})
	}
	res, err := h.svc.Charge(ctx, req)
	if err != nil {
		slog.Error("nats: charge failed", "error", err, "account", req.AccountOrDefault())
		return encodeReply(errorReply{Error: err.Error()})
	}
	return encodeReply(res)
}

func (h *Handler) handleReset(ctx context.Context, data []byte) []byte {
	var req model.ResetRequest
	if err := decodeCommand(data, &req); err != nil {
		slog.Error("nats: failed to unmarshal reset command", "error", err)
		return encodeReply(errorReply{Error: "invalid_json"})
	}
	if err := h.svc.Reset(ctx, req); err != nil {
		slog.Error("nats: reset failed", "error", err, "account", req.AccountOrDefault())
		return encodeReply(errorReply{Error: err.Error()})
	}
	return encodeReply(struct{}{})
}

// decodeCommand treats an empty payload as a request with all defaults.
func decodeCommand(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func encodeReply(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"error":"encode_reply"}`)
	}
	return data
}
