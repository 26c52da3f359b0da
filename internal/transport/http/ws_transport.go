package http

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/core"
	"github.com/dataO1/hush-fm/internal/proto"
)

const (
	eventQueueSize = 64
	frameQueueSize = 64
)

// outbound is one queued socket write: either a mapped value to marshal or
// raw bytes to forward verbatim.
type outbound struct {
	v   any
	raw json.RawMessage
}

// wsTransport implements core.Transport over one websocket connection.
// Queues are bounded; a full queue drops the message rather than blocking
// the producer.
type wsTransport struct {
	events chan outbound
	frames chan []byte
	log    *zerolog.Logger
}

func newWSTransport(logger *zerolog.Logger) *wsTransport {
	return &wsTransport{
		events: make(chan outbound, eventQueueSize),
		frames: make(chan []byte, frameQueueSize),
		log:    logger,
	}
}

func (t *wsTransport) Deliver(ev *core.Event) bool {
	if ev.Kind == core.EventControl {
		return t.enqueue(outbound{raw: ev.Raw})
	}
	v := outboundFromEvent(ev)
	if v == nil {
		return true
	}
	return t.enqueue(outbound{v: v})
}

func (t *wsTransport) DeliverSignal(sig *core.Signal) bool {
	return t.enqueue(outbound{v: sig})
}

func (t *wsTransport) DeliverFrame(frame []byte) bool {
	select {
	case t.frames <- frame:
		return true
	default:
		return false
	}
}

func (t *wsTransport) deliverError(code, msg string) {
	t.enqueue(outbound{v: proto.Error{Type: proto.TypeError, Code: code, Message: msg}})
}

func (t *wsTransport) enqueue(out outbound) bool {
	select {
	case t.events <- out:
		return true
	default:
		return false
	}
}

// writeLoop drains the queues onto the wire. Every write is bounded by the
// configured timeout so a stalled peer cannot wedge the loop.
func (t *wsTransport) writeLoop(ctx context.Context, conn *websocket.Conn, timeout time.Duration) error {
	for {
		select {
		case out := <-t.events:
			if err := t.write(ctx, conn, out, timeout); err != nil {
				return err
			}
		case frame := <-t.frames:
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err := conn.Write(wctx, websocket.MessageBinary, frame)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *wsTransport) write(ctx context.Context, conn *websocket.Conn, out outbound, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if out.raw != nil {
		return conn.Write(wctx, websocket.MessageText, out.raw)
	}
	return wsjson.Write(wctx, conn, out.v)
}
