package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/quizroom/internal/quiz/event"
	"github.com/louisbranch/quizroom/internal/quiz/service"
)

const (
	maxFramePayloadBytes   = 4096
	maxFramesPerSecond     = 20
	maxDecodeErrorsPerConn = 5
	maxChannelsPerPeer     = 32
)

// wsFrame is the single envelope exchanged on the websocket, both
// directions. Clients send subscribe/unsubscribe and quiz.* command
// frames; the server pushes acks, error frames, and event frames.
type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// eventEnvelope is the payload of a pushed event frame.
type eventEnvelope struct {
	Name        event.Name      `json:"name"`
	Data        json.RawMessage `json:"data"`
	PublishedAt string          `json:"published_at"`
}

type wsError struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

// wsPeer serializes frame writes over one connection.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// eventHub fans published events out to websocket subscribers. It is the
// app's event publisher: channels are created on first subscribe or first
// publish and dropped when their last subscriber leaves.
type eventHub struct {
	clock func() time.Time

	mu       sync.Mutex
	channels map[string]map[*wsPeer]struct{}
}

func newEventHub(clock func() time.Time) *eventHub {
	if clock == nil {
		clock = time.Now
	}
	return &eventHub{
		clock:    clock,
		channels: make(map[string]map[*wsPeer]struct{}),
	}
}

// Publish delivers one event to every current subscriber of the channel.
// Per-peer write failures are logged and skipped so a stalled client never
// blocks delivery to the rest; the connection reaper cleans it up.
func (h *eventHub) Publish(_ context.Context, channel string, name event.Name, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", name, err)
	}
	envelope, err := json.Marshal(eventEnvelope{
		Name:        name,
		Data:        data,
		PublishedAt: h.clock().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope %s: %w", name, err)
	}

	h.mu.Lock()
	subscribers := make([]*wsPeer, 0, len(h.channels[channel]))
	for peer := range h.channels[channel] {
		subscribers = append(subscribers, peer)
	}
	h.mu.Unlock()

	frame := wsFrame{Type: "event", Channel: channel, Payload: envelope}
	for _, peer := range subscribers {
		if err := peer.writeFrame(frame); err != nil {
			log.Printf("ws publish channel=%s name=%s: %v", channel, name, err)
		}
	}
	return nil
}

func (h *eventHub) subscribe(channel string, peer *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subscribers, ok := h.channels[channel]
	if !ok {
		subscribers = make(map[*wsPeer]struct{})
		h.channels[channel] = subscribers
	}
	subscribers[peer] = struct{}{}
}

func (h *eventHub) unsubscribe(channel string, peer *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subscribers, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(subscribers, peer)
	if len(subscribers) == 0 {
		delete(h.channels, channel)
	}
}

func (h *eventHub) dropPeer(peer *wsPeer, channels map[string]struct{}) {
	for channel := range channels {
		h.unsubscribe(channel, peer)
	}
}

// handleWSConn runs the read loop for one websocket client until it
// disconnects or misbehaves past the per-connection limits. Frames are
// either channel subscriptions handled by the hub or coordinator commands
// dispatched to svc.
func handleWSConn(conn *websocket.Conn, hub *eventHub, svc *service.Service) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	peer := newWSPeer(json.NewEncoder(conn))
	subscribed := make(map[string]struct{})
	defer hub.dropPeer(peer, subscribed)

	ctx := context.Background()
	locale := ""
	if request := conn.Request(); request != nil {
		ctx = request.Context()
		locale = localeFromRequest(request)
	}

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(peer, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSError(peer, frame.RequestID, "RESOURCE_EXHAUSTED", "rate limit exceeded")
			return
		}

		switch frame.Type {
		case "subscribe":
			channel := strings.TrimSpace(frame.Channel)
			if channel == "" {
				_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "channel is required")
				continue
			}
			if _, ok := subscribed[channel]; !ok && len(subscribed) >= maxChannelsPerPeer {
				_ = writeWSError(peer, frame.RequestID, "RESOURCE_EXHAUSTED", "too many channel subscriptions")
				continue
			}
			hub.subscribe(channel, peer)
			subscribed[channel] = struct{}{}
			_ = peer.writeFrame(wsFrame{Type: "subscribed", RequestID: frame.RequestID, Channel: channel})
		case "unsubscribe":
			channel := strings.TrimSpace(frame.Channel)
			if channel == "" {
				_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "channel is required")
				continue
			}
			hub.unsubscribe(channel, peer)
			delete(subscribed, channel)
			_ = peer.writeFrame(wsFrame{Type: "unsubscribed", RequestID: frame.RequestID, Channel: channel})
		default:
			if !dispatchCommand(ctx, svc, peer, frame, locale) {
				_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
			}
		}
	}
}

func writeWSError(peer *wsPeer, requestID string, code string, message string) error {
	payload, err := json.Marshal(wsErrorEnvelope{Error: wsError{Code: code, Message: message}})
	if err != nil {
		return err
	}
	return peer.writeFrame(wsFrame{Type: "error", RequestID: requestID, Payload: payload})
}
