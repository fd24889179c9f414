package service

// EventPublisher fans job progress out to whoever watches a ticket.
type EventPublisher interface {
	Publish(ticket string, event Event)
}

type Event struct {
	Type    string `json:"-"`
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

const EventTypeStatus = "status"
