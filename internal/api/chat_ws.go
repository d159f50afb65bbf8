package api

import (
	"net/http"

	"github.com/coder/websocket"

	"github.com/flitsinc/agentd/internal/session"
)

// handleChatWS upgrades the request and hands the connection to a Session,
// which owns it until disconnect.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	var opts []session.Option
	if s.Heartbeat > 0 {
		opts = append(opts, session.WithHeartbeatInterval(s.Heartbeat))
	}
	sess := session.New(conn, s.Turns, s.Recorder, s.Tasks, opts...)
	_ = sess.Serve(r.Context())
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}
