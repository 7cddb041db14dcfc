package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/peyk-chat/peyk-server/internal/auth"
	"github.com/peyk-chat/peyk-server/internal/core"
	"github.com/peyk-chat/peyk-server/internal/proto"
	"github.com/peyk-chat/peyk-server/internal/store"
	"github.com/peyk-chat/peyk-server/internal/utils"
)

// WSHandler upgrades HTTP connections, authenticates them, and bridges them
// to core clients.
type WSHandler struct {
	hub  *core.Hub
	auth *auth.Service
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, auth: authService, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	// Connection gate: resolve the bearer credential from handshake
	// metadata before any other handler can observe the connection.
	user, gateErr := h.gate(ctx, r)
	if gateErr != nil {
		h.rejectUnauthorized(ctx, conn)
		return
	}

	client := core.NewClient(utils.NewConnID())
	client.AttachIdentity(user)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// gate extracts the bearer credential from the handshake and resolves it to a
// user identity. Browsers cannot set headers on websocket dials, so a token
// query parameter is accepted as well.
func (h *WSHandler) gate(ctx context.Context, r *stdhttp.Request) (*store.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			header = "Bearer " + token
		}
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return nil, auth.ErrUnauthorized
	}

	verified, err := h.auth.Verify(ctx, parts[1])
	if err != nil {
		return nil, err
	}
	return verified, nil
}

// rejectUnauthorized emits the structured error on the error channel, then
// terminates the connection.
func (h *WSHandler) rejectUnauthorized(ctx context.Context, conn *websocket.Conn) {
	coreErr := core.ErrUnauthorized()
	_ = wsjson.Write(ctx, conn, proto.Outbound{
		Event: proto.EventError,
		Data:  proto.NewErrorData(coreErr.StatusCode, coreErr.Message),
	})
	conn.Close(websocket.StatusPolicyViolation, "unauthorized")
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Event: proto.EventError,
				Data:  *protoErr,
			}); writeErr != nil {
				return writeErr
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events():
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
			if event.Kind == core.EventError && event.Error != nil && event.Error.Fatal() {
				return errors.New("authorization failure")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
