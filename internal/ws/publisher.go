package ws

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"inspection_log/internal/model"
)

// FormsUpdateEvent is the socket event carrying form mutations
const FormsUpdateEvent = "forms:update"

// defaultBacklog is how many events are kept for clients catching up
const defaultBacklog = 200

// Event is one form mutation as seen by socket clients
type Event struct {
	ID        int64       `json:"eventId"`
	Type      string      `json:"type"`
	FormID    int         `json:"formId"`
	Status    string      `json:"status,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Broadcaster sends an event to every connected client
type Broadcaster interface {
	BroadcastToNamespace(namespace string, event string, args ...interface{}) bool
}

// Publisher numbers form events, keeps a bounded backlog and broadcasts them
type Publisher struct {
	mu      sync.Mutex
	lastID  int64
	backlog []Event
	limit   int
	out     Broadcaster
	logger  *logrus.Entry
}

// NewPublisher creates a publisher. out may be nil, in which case events
// are only recorded.
func NewPublisher(out Broadcaster, logger *logrus.Entry) *Publisher {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Publisher{
		limit:  defaultBacklog,
		out:    out,
		logger: logger.WithField("component", "ws-publisher"),
	}
}

// PublishFormEvent records and broadcasts a form mutation. Broadcast
// failures never affect the caller.
func (p *Publisher) PublishFormEvent(eventType string, form *model.InspectionForm) {
	p.mu.Lock()
	p.lastID++
	ev := Event{
		ID:        p.lastID,
		Type:      eventType,
		FormID:    form.ID,
		Status:    string(form.Status),
		CreatedAt: time.Now(),
	}
	if form.DocumentNo != "" {
		ev.Data = form
	}
	p.backlog = append(p.backlog, ev)
	if len(p.backlog) > p.limit {
		p.backlog = p.backlog[len(p.backlog)-p.limit:]
	}
	p.mu.Unlock()

	if p.out == nil {
		return
	}
	if !p.out.BroadcastToNamespace("/", FormsUpdateEvent, ev) {
		p.logger.WithFields(logrus.Fields{
			"event_id": ev.ID,
			"type":     ev.Type,
		}).Warn("Failed to broadcast form event")
	}
}

// Since returns up to max events with an id greater than lastEventID
func (p *Publisher) Since(lastEventID int64, max int) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Event, 0)
	for _, ev := range p.backlog {
		if ev.ID > lastEventID {
			out = append(out, ev)
			if max > 0 && len(out) == max {
				break
			}
		}
	}
	return out
}

// LatestID returns the id of the newest event, 0 when none was published
func (p *Publisher) LatestID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastID
}
