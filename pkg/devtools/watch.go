package devtools

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/partition/pkg/part"
	"github.com/vango-dev/partition/pkg/suspense"
)

// Frame is pushed to watch clients: once on connect and after every
// notification of the watched part.
type Frame struct {
	ID      uint64 `json:"id"`
	Version uint64 `json:"version"`
	Value   any    `json:"value"`
}

// handleWatch streams frames for one part. Notifications arriving while a
// frame is being written are coalesced into the next frame. A pending async
// value is sent again once it settles.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("devtools upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	wake := make(chan struct{}, 1)
	signal := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
	unsubscribe := s.store.SubscribeToPart(p, signal)
	defer unsubscribe()

	// Clients only send close frames; reading is how a disconnect is seen.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		pending, err := s.send(conn, p)
		if err != nil {
			s.logger.Debug("devtools watch write failed", "part", p.ID(), "error", err)
			return
		}
		if pending != nil {
			go func() {
				select {
				case <-pending.Done():
					signal()
				case <-closed:
				}
			}()
		}

		select {
		case <-closed:
			return
		case <-wake:
		}
	}
}

// send writes the current frame of p. It returns the value when it is a
// pending promise.
func (s *Server) send(conn *websocket.Conn, p *part.Part) (*suspense.Promise, error) {
	v := s.store.Get(p)
	frame := Frame{
		ID:      p.ID(),
		Version: s.store.Version(),
		Value:   encodeValue(v),
	}

	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		return nil, err
	}

	if view, ok := frame.Value.(PromiseView); ok && view.State == suspense.Pending.String() {
		return v.(*suspense.Promise), nil
	}
	return nil, nil
}
