package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/gogpu/pen"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Republish the event stream as JSON over a websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()

			hub := newHub()
			mux := http.NewServeMux()
			mux.HandleFunc("/events", hub.handle)
			srv := &http.Server{Addr: addr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					pen.Logger().Error("penprobe: http server failed", "err", err)
				}
			}()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("backend %s, streaming on ws://%s/events\n", m.Backend(), addr)

			return pumpLoop(m, func(events []pen.Event) error {
				if len(events) == 0 {
					return nil
				}
				batch := make([]wireEvent, 0, len(events))
				for _, ev := range events {
					batch = append(batch, toWire(ev))
				}
				hub.broadcast(batch)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8787", "listen address")
	return cmd
}

// hub fans event batches out to connected websocket viewers. Slow or
// broken clients are dropped rather than allowed to stall the pump.
type hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			// The probe is a local diagnostic; any origin may watch.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *hub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Drain control frames; viewer disconnect surfaces here.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *hub) broadcast(batch []wireEvent) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return
	}
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(time.Second))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
		}
	}
}

// wireEvent is the JSON shape of one event.
type wireEvent struct {
	Device  string    `json:"device"`
	Kind    string    `json:"kind"`
	Subject string    `json:"subject"`
	Tablet  string    `json:"tablet,omitempty"`
	Button  *uint32   `json:"button,omitempty"`
	Pressed *bool     `json:"pressed,omitempty"`
	Mode    *uint32   `json:"mode,omitempty"`
	Pos     *float32  `json:"position,omitempty"`
	Pose    *wirePose `json:"pose,omitempty"`
	TimeMS  *int64    `json:"timeMs,omitempty"`
}

type wirePose struct {
	X        float32  `json:"x"`
	Y        float32  `json:"y"`
	Pressure *float32 `json:"pressure,omitempty"`
	TiltX    *float32 `json:"tiltX,omitempty"`
	TiltY    *float32 `json:"tiltY,omitempty"`
	Distance *float32 `json:"distance,omitempty"`
	Roll     *float32 `json:"roll,omitempty"`
}

func optPtr(o pen.OptFloat) *float32 {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}

func toWire(ev pen.Event) wireEvent {
	switch e := ev.(type) {
	case pen.ToolEvent:
		w := wireEvent{Device: "tool", Kind: e.Kind.String(), Subject: e.Tool.ID.String()}
		switch e.Kind {
		case pen.ToolIn, pen.ToolOut:
			w.Tablet = e.Tablet.ID.String()
		case pen.ToolButton:
			w.Button, w.Pressed = &e.Button, &e.Pressed
		case pen.ToolPose:
			p := &wirePose{
				X: e.Pose.Position[0], Y: e.Pose.Position[1],
				Pressure: optPtr(e.Pose.Pressure),
				Distance: optPtr(e.Pose.Distance),
				Roll:     optPtr(e.Pose.Roll),
			}
			if e.Pose.HasTilt {
				p.TiltX, p.TiltY = &e.Pose.Tilt[0], &e.Pose.Tilt[1]
			}
			w.Pose = p
		case pen.ToolFrame:
			if e.HasTime {
				ms := time.Duration(e.Time).Milliseconds()
				w.TimeMS = &ms
			}
		}
		return w
	case pen.TabletEvent:
		return wireEvent{Device: "tablet", Kind: e.Kind.String(), Subject: e.Tablet.ID.String()}
	case pen.PadEvent:
		w := wireEvent{Device: "pad", Kind: e.Kind.String(), Subject: e.Pad.ID.String()}
		switch e.Kind {
		case pen.PadEnter:
			w.Tablet = e.Tablet.ID.String()
		case pen.PadButton:
			w.Button, w.Pressed = &e.Button, &e.Pressed
		case pen.PadGroupMode:
			w.Mode = &e.Mode
		case pen.PadRingPose, pen.PadStripPose:
			w.Pos = &e.Position
		case pen.PadRingFrame, pen.PadStripFrame:
			if e.HasTime {
				ms := time.Duration(e.Time).Milliseconds()
				w.TimeMS = &ms
			}
		}
		return w
	default:
		return wireEvent{Device: "unknown"}
	}
}
