// Package remote streams the runtime's mutation batches to a client over a
// websocket and feeds the client's UI events back. Each connection hosts its
// own runtime instance, so session state lives server-side and the client
// only interprets edit instructions.
package remote

import (
	"context"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/gowade/loom/driver"
	"github.com/gowade/loom/vdom"
)

// eventFrame is the wire shape of one client event.
type eventFrame struct {
	Name    string         `json:"name"`
	Target  vdom.ElementID `json:"target"`
	Bubbles bool           `json:"bubbles"`
	Data    any            `json:"data,omitempty"`
}

// Session is one connected client. It implements the backend contract:
// batches go out as JSON frames, decoded events come back on the channel.
type Session struct {
	id   ulid.ULID
	conn *websocket.Conn

	writeMu sync.Mutex
	events  chan *vdom.Event
	done    chan struct{}

	closeOnce sync.Once
}

// NewSession wraps an established connection and starts its read loop.
func NewSession(conn *websocket.Conn) *Session {
	s := &Session{
		id:     ulid.Make(),
		conn:   conn,
		events: make(chan *vdom.Event, 16),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// ID is the session's ULID.
func (s *Session) ID() string { return s.id.String() }

// Apply sends one batch to the client as a JSON frame.
func (s *Session) Apply(batch *vdom.MutationList) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(batch); err != nil {
		return errors.Wrapf(err, "session %s: writing batch", s.ID())
	}
	return nil
}

// Events yields decoded client events. Closed when the connection drops.
func (s *Session) Events() <-chan *vdom.Event { return s.events }

// Close drops the connection; the read loop then closes the event channel,
// even when it is blocked on a full buffer nobody is draining anymore.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *Session) readLoop() {
	defer close(s.events)
	for {
		var f eventFrame
		if err := s.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				glog.V(1).Infof("session %s: read: %v", s.ID(), err)
			}
			return
		}
		if f.Name == "" {
			glog.Errorf("session %s: event frame without a name, dropped", s.ID())
			continue
		}
		ev := &vdom.Event{
			Name:    f.Name,
			Target:  f.Target,
			Bubbles: f.Bubbles,
			Data:    f.Data,
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// Server upgrades HTTP requests into sessions, each running a fresh app
// instance until the client goes away.
type Server struct {
	upgrader websocket.Upgrader
	newApp   func() *vdom.Dom
	onDone   func(*vdom.Dom)
}

// NewServer builds a handler around an app constructor. The constructor runs
// once per connection; the runtime it returns belongs to that session alone.
func NewServer(newApp func() *vdom.Dom) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		newApp: newApp,
	}
}

func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Errorf("websocket upgrade: %v", err)
		return
	}
	sess := NewSession(conn)
	defer sess.Close()

	glog.V(1).Infof("session %s connected from %s", sess.ID(), r.RemoteAddr)
	d := srv.newApp()
	if err := driver.Run(r.Context(), d, sess); err != nil && errors.Cause(err) != context.Canceled {
		glog.Errorf("session %s: %v", sess.ID(), err)
	}
	if srv.onDone != nil {
		srv.onDone(d)
	}
	glog.V(1).Infof("session %s closed", sess.ID())
}

// OnSessionEnd registers a callback invoked with a session's runtime after
// its update loop exits, so fan-out registries can drop the dead session.
func (srv *Server) OnSessionEnd(fn func(*vdom.Dom)) {
	srv.onDone = fn
}
