package dto

import "time"

// CreateEventRequest represents request to create a new event
type CreateEventRequest struct {
	Name        string     `json:"name" binding:"required,max=200"`
	Description string     `json:"description" binding:"omitempty,max=5000"`
	Venue       string     `json:"venue" binding:"omitempty,max=255"`
	StartsAt    *time.Time `json:"starts_at" binding:"omitempty"`
	Capacity    int        `json:"capacity" binding:"required"`
}

// UpdateEventRequest represents a partial event update
type UpdateEventRequest struct {
	Name        *string    `json:"name" binding:"omitempty,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=5000"`
	Venue       *string    `json:"venue" binding:"omitempty,max=255"`
	StartsAt    *time.Time `json:"starts_at" binding:"omitempty"`
	Capacity    *int       `json:"capacity" binding:"omitempty"`
	Status      *string    `json:"status" binding:"omitempty,oneof=published cancelled"`
}

// Validate validates that at least one field is provided for update
func (r *UpdateEventRequest) Validate() (bool, string) {
	if r.Name == nil && r.Description == nil && r.Venue == nil && r.StartsAt == nil &&
		r.Capacity == nil && r.Status == nil {
		return false, "At least one field must be provided for update"
	}
	return true, ""
}

// EventResponse represents event data in responses
type EventResponse struct {
	ID            string  `json:"id"`
	OwnerID       string  `json:"owner_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Venue         string  `json:"venue,omitempty"`
	StartsAt      *string `json:"starts_at,omitempty"`
	Capacity      int     `json:"capacity"`
	AttendeeCount int     `json:"attendee_count"`
	Remaining     int     `json:"remaining"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// ListEventsQuery represents query parameters for listing events
type ListEventsQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// SetDefaults sets default values for query parameters
func (q *ListEventsQuery) SetDefaults() {
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// ListEventsResponse represents a page of events
type ListEventsResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}
