package realtime

import "encoding/json"

type EventType string

const (
	EventNewBid             EventType = "new_bid"
	EventBidAccepted        EventType = "bid_accepted"
	EventBidRejected        EventType = "bid_rejected"
	EventBidDeleted         EventType = "bid_deleted"
	EventNewMessage         EventType = "new_message"
	EventDeliveryConfirmed  EventType = "delivery_confirmed"
	EventPayoutStatusUpdate EventType = "payout_status_update"
)

// Event is pushed to clients as a flat JSON object: {"type": ..., <fields>}.
type Event struct {
	Type   EventType
	Fields map[string]interface{}
}

func NewEvent(t EventType, fields map[string]interface{}) Event {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return Event{Type: t, Fields: fields}
}

func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(e.Fields)+1)
	for k, v := range e.Fields {
		m[k] = v
	}
	m["type"] = e.Type
	return json.Marshal(m)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	t, _ := m["type"].(string)
	delete(m, "type")
	e.Type = EventType(t)
	e.Fields = m
	return nil
}

// Notifier delivers an event to one user on a best-effort basis.
type Notifier interface {
	Notify(userID string, evt Event)
}
