package ws

import (
	socketio "github.com/googollee/go-socket.io"
)

// maxCatchUpEvents bounds a single request:forms reply
const maxCatchUpEvents = 100

// RequestFormsData is sent by clients in a request:forms event
type RequestFormsData struct {
	LastEventID int64 `json:"lastEventId"`
}

// RequestFormsReply answers request:forms
type RequestFormsReply struct {
	LatestEventID int64   `json:"latestEventId"`
	Events        []Event `json:"events"`
}

// RegisterHandlers lets clients that reconnect fetch the events they missed
func RegisterHandlers(server *socketio.Server, p *Publisher) {
	server.OnEvent("/", "request:forms", func(s socketio.Conn, req RequestFormsData) RequestFormsReply {
		return catchUp(p, req)
	})
}

func catchUp(p *Publisher, req RequestFormsData) RequestFormsReply {
	return RequestFormsReply{
		LatestEventID: p.LatestID(),
		Events:        p.Since(req.LastEventID, maxCatchUpEvents),
	}
}
