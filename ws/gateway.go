package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wavelink/auth"
	"wavelink/contract"
	apperrors "wavelink/errors"
	"wavelink/services"
)

// Kind selects which conversation namespace a gateway serves. The two
// transports share one implementation and differ only in the room
// prefix and membership check.
type Kind int

const (
	KindDirect Kind = iota
	KindGroup
)

func (k Kind) room(conversationID string) contract.RoomKey {
	if k == KindGroup {
		return contract.GroupRoom(conversationID)
	}
	return contract.ConversationRoom(conversationID)
}

// Gateway upgrades HTTP requests to websockets, authenticates the
// handshake, and runs one read loop per connection. A single read loop
// means a client's events are handled strictly in the order it sent
// them.
type Gateway struct {
	log           *slog.Logger
	kind          Kind
	verifier      auth.Verifier
	conversations services.IConversationService
	limiter       contract.Limiter
	registry      contract.IRegistry
	pusher        contract.Pusher
	validate      *validator.Validate
	upgrader      websocket.Upgrader
	sendBuffer    int
}

func NewGateway(
	log *slog.Logger,
	kind Kind,
	verifier auth.Verifier,
	conversations services.IConversationService,
	limiter contract.Limiter,
	registry contract.IRegistry,
	pusher contract.Pusher,
	sendBuffer int,
) *Gateway {
	return &Gateway{
		log:           log,
		kind:          kind,
		verifier:      verifier,
		conversations: conversations,
		limiter:       limiter,
		registry:      registry,
		pusher:        pusher,
		validate:      validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sendBuffer: sendBuffer,
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	credential := auth.CredentialFromHandshake(r)

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	claims, err := g.verifier.Verify(credential)
	if err != nil {
		// The error frame goes out before the close so clients can tell
		// a bad credential from a network failure.
		data, _ := json.Marshal(ErrorFrame{
			Code:    apperrors.WireCode(err),
			Message: "authentication failed",
		})
		_ = conn.WriteJSON(Envelope{Event: EventError, Data: data})
		_ = conn.Close()
		g.log.Info("handshake rejected", "error", err, "remote", r.RemoteAddr)
		return
	}

	client := newClient(uuid.NewString(), claims.UserID, conn, g.sendBuffer)
	g.log.Info("connection established",
		"conn_id", client.ID, "user_id", client.User, "kind", g.kind)

	// Every authenticated connection listens on its personal room, so
	// notifications reach the user without an explicit join.
	g.registry.Subscribe(client.ID, contract.UserRoom(client.User), client)

	go client.writePump()
	g.readLoop(r.Context(), client)

	g.registry.DropConnection(client.ID)
	client.shutdown()
	g.log.Info("connection closed", "conn_id", client.ID, "user_id", client.User)
}

func (g *Gateway) readLoop(ctx context.Context, client *Client) {
	client.configureRead()
	for {
		envelope, err := client.readFrame()
		if errors.Is(err, apperrors.ErrInvalidPayload) {
			g.sendError(client, err, "malformed frame")
			continue
		}
		if err != nil {
			return
		}
		g.dispatch(ctx, client, envelope)
	}
}

func (g *Gateway) dispatch(ctx context.Context, client *Client, envelope Envelope) {
	var err error
	switch envelope.Event {
	case EventJoin:
		err = g.handleJoin(client, envelope.Data)
	case EventLeave:
		err = g.handleLeave(client, envelope.Data)
	case EventMessage:
		err = g.handleMessage(ctx, client, envelope.Data)
	case EventTyping:
		err = g.handleTyping(client, envelope.Data)
	case EventRead:
		err = g.handleRead(client, envelope.Data)
	default:
		err = fmt.Errorf("%w: unknown event %q", apperrors.ErrInvalidPayload, envelope.Event)
	}
	if err != nil {
		g.log.Debug("event rejected",
			"event", envelope.Event, "user_id", client.User, "error", err)
		g.sendError(client, err, "request rejected")
	}
}

func (g *Gateway) handleJoin(client *Client, data json.RawMessage) error {
	payload, err := decode[JoinPayload](g.validate, data)
	if err != nil {
		return err
	}
	conversationID, err := uuid.Parse(payload.RoomID)
	if err != nil {
		return fmt.Errorf("%w: roomId is not a uuid", apperrors.ErrInvalidPayload)
	}

	member, err := g.conversations.IsMember(conversationID, client.User, g.kind == KindGroup)
	if err != nil {
		return err
	}
	if !member {
		return apperrors.ErrNotParticipant
	}

	g.registry.Subscribe(client.ID, g.kind.room(payload.RoomID), client)
	return client.Send(EventJoined, RoomAck{RoomID: payload.RoomID})
}

// handleLeave removes the membership unconditionally. Leaving a room
// the connection never joined is a no-op, not an error.
func (g *Gateway) handleLeave(client *Client, data json.RawMessage) error {
	payload, err := decode[LeavePayload](g.validate, data)
	if err != nil {
		return err
	}
	g.registry.Unsubscribe(client.ID, g.kind.room(payload.RoomID))
	return client.Send(EventLeft, RoomAck{RoomID: payload.RoomID})
}

func (g *Gateway) handleMessage(ctx context.Context, client *Client, data json.RawMessage) error {
	payload, err := decode[MessagePayload](g.validate, data)
	if err != nil {
		return err
	}
	if g.kind == KindGroup && payload.ConversationID == nil {
		return fmt.Errorf("%w: group messages require conversationId", apperrors.ErrInvalidPayload)
	}

	command := services.SendCommand{
		SenderID:    client.User,
		RecipientID: payload.RecipientID,
		Content:     payload.Content,
		Attachments: payload.Attachments,
	}
	if payload.ConversationID != nil {
		conversationID, err := uuid.Parse(*payload.ConversationID)
		if err != nil {
			return fmt.Errorf("%w: conversationId is not a uuid", apperrors.ErrInvalidPayload)
		}
		// The transport kind is part of the authorization, exactly as on
		// join: a direct thread is not addressable through the group
		// gateway and vice versa.
		member, err := g.conversations.IsMember(conversationID, client.User, g.kind == KindGroup)
		if err != nil {
			return err
		}
		if !member {
			return apperrors.ErrNotParticipant
		}
		command.ConversationID = &conversationID
		command.RecipientID = nil
	}

	allowed, err := g.limiter.Allow(ctx, client.User)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrRateLimited
	}

	view, err := g.conversations.Send(ctx, command)
	if err != nil {
		return err
	}

	// Broadcast only after the write committed, then ack the sender so
	// its optimistic placeholder can reconcile against the real id.
	room := g.kind.room(view.ConversationID.String())
	if command.RecipientID != nil {
		// Addressing by recipient may have created the thread inside this
		// very send, so no one can have joined its room yet. Pull both
		// sides' live connections in before broadcasting.
		g.registry.MirrorRoom(contract.UserRoom(*command.RecipientID), room)
		g.registry.MirrorRoom(contract.UserRoom(client.User), room)
	}
	g.pusher.PushExcept(room, client.ID, EventMessage, view)
	return client.Send(EventMessageSent, MessageAck{
		TempID:         payload.TempID,
		ID:             view.ID.String(),
		ConversationID: view.ConversationID.String(),
	})
}

// handleTyping is a stateless relay. Nothing is validated against the
// store and nothing is persisted.
func (g *Gateway) handleTyping(client *Client, data json.RawMessage) error {
	payload, err := decode[TypingPayload](g.validate, data)
	if err != nil {
		return err
	}
	g.pusher.PushExcept(g.kind.room(payload.RoomID), client.ID, EventTyping, TypingEvent{
		RoomID: payload.RoomID,
		UserID: client.User,
		Typing: payload.Typing,
	})
	return nil
}

func (g *Gateway) handleRead(client *Client, data json.RawMessage) error {
	payload, err := decode[ReadPayload](g.validate, data)
	if err != nil {
		return err
	}
	conversationID, err := uuid.Parse(payload.RoomID)
	if err != nil {
		return fmt.Errorf("%w: roomId is not a uuid", apperrors.ErrInvalidPayload)
	}

	applied, err := g.conversations.MarkRead(conversationID, client.User, payload.LastReadAt)
	if err != nil {
		return err
	}
	g.pusher.PushExcept(g.kind.room(payload.RoomID), client.ID, EventRead, ReadEvent{
		RoomID:     payload.RoomID,
		UserID:     client.User,
		LastReadAt: applied,
	})
	return nil
}

func (g *Gateway) sendError(client *Client, err error, message string) {
	_ = client.Send(EventError, ErrorFrame{Code: apperrors.WireCode(err), Message: message})
}

// decode unmarshals and validates one payload type. Shape mismatches
// are rejected here, before any handler logic runs.
func decode[T any](validate *validator.Validate, data json.RawMessage) (T, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("%w: %s", apperrors.ErrInvalidPayload, "malformed payload")
	}
	if err := validate.Struct(payload); err != nil {
		return payload, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}
	return payload, nil
}
