package domain

import (
	"time"
)

// EventStatus represents the lifecycle state of an event
type EventStatus string

const (
	EventStatusActive   EventStatus = "active"
	EventStatusCanceled EventStatus = "canceled"
)

// DateLayout is the calendar date format accepted for events
const DateLayout = "2006-01-02"

// Event is a ticketed occurrence with fixed capacity and price
type Event struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Date        string      `json:"date"`
	TicketPrice int64       `json:"ticket_price"`
	MaxCapacity int         `json:"max_capacity"`
	TicketsSold int         `json:"tickets_sold"`
	Status      EventStatus `json:"status"`
	Owner       string      `json:"owner"`
	Version     int64       `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// IsCanceled reports whether the event has been canceled
func (e *Event) IsCanceled() bool {
	return e.Status == EventStatusCanceled
}

// SoldOut reports whether every unit of capacity has been sold
func (e *Event) SoldOut() bool {
	return e.TicketsSold >= e.MaxCapacity
}

// Clone returns a copy safe to mutate
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
