package dto

// RegistrationResponse reports the outcome of a join or leave. Idempotent
// outcomes are successes with Changed false.
type RegistrationResponse struct {
	EventID       string `json:"event_id"`
	Outcome       string `json:"outcome"`
	Changed       bool   `json:"changed"`
	AttendeeCount int    `json:"attendee_count"`
	Capacity      int    `json:"capacity"`
	Remaining     int    `json:"remaining"`
}

// RegistrationStatusResponse answers whether the caller holds a seat
type RegistrationStatusResponse struct {
	EventID    string `json:"event_id"`
	Registered bool   `json:"registered"`
}

// BookmarkResponse reports the outcome of a bookmark toggle
type BookmarkResponse struct {
	EventID string `json:"event_id"`
	Outcome string `json:"outcome"`
	Changed bool   `json:"changed"`
}

// ListBookmarksResponse lists the caller's bookmarked event ids
type ListBookmarksResponse struct {
	EventIDs []string `json:"event_ids"`
}
