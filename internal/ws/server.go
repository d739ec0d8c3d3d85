package ws

import (
	"net/http"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/sirupsen/logrus"
)

// NewServer creates the Socket.IO server. allowedOrigin "" or "*" accepts
// any origin.
func NewServer(allowedOrigin string, logger *logrus.Entry) *socketio.Server {
	log := logger.WithField("component", "ws")
	checkOrigin := func(r *http.Request) bool {
		if allowedOrigin == "" || allowedOrigin == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowedOrigin
	}

	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&polling.Transport{CheckOrigin: checkOrigin},
			&websocket.Transport{CheckOrigin: checkOrigin},
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		log.WithField("conn_id", s.ID()).Debug("Client connected")
		s.Emit("connected", map[string]interface{}{
			"ok": true,
		})
		return nil
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.WithFields(logrus.Fields{
			"conn_id": s.ID(),
			"reason":  reason,
		}).Debug("Client disconnected")
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		if s == nil {
			log.WithError(e).Warn("Socket error")
			return
		}
		log.WithError(e).WithField("conn_id", s.ID()).Warn("Socket error")
	})

	return server
}

// Serve runs the server loop in the background
func Serve(server *socketio.Server, logger *logrus.Entry) {
	go func() {
		if err := server.Serve(); err != nil {
			logger.WithError(err).Error("Socket.IO server stopped")
		}
	}()
}
