package push

import (
	"encoding/json"

	"librahub/internal/api"
	"librahub/internal/shared"
)

// Named events the library service emits into a user's room, plus the
// client-emitted room join.
const (
	EventJoinUser = "joinUser"

	EventReservationCreated   = "reservationCreated"
	EventReservationUpdated   = "reservationUpdated"
	EventReservationApproved  = "reservationApproved"
	EventReservationCancelled = "reservationCancelled"

	EventBookReturned      = "bookReturned"
	EventBookStatusChanged = "bookStatusChanged"
	EventBookStatusUpdated = "bookStatusUpdated"
	EventBookAdded         = "bookAdded"
	EventBookDeleted       = "bookDeleted"
	EventBookUpdated       = "bookUpdated"
)

// DecodeReservationPayload decodes the reservation carried by a reservation
// event. Returns nil for payloads that carry no usable reservation.
func DecodeReservationPayload(data json.RawMessage) *shared.Reservation {
	return api.NormalizeReservation(data)
}

// ExtractBookTitle pulls a display title out of an event payload. The service
// is inconsistent about where the title lives across event types: reservation
// events use "bookTitle" or an embedded book object, bookReturned uses
// "Title". Returns "" when no variant is present; callers supply their own
// placeholder.
func ExtractBookTitle(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}

	var payload struct {
		BookTitle  string `json:"bookTitle"`
		TitleUpper string `json:"Title"`
		Title      string `json:"title"`
		Book       *struct {
			Title string `json:"title"`
		} `json:"book"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}

	if payload.BookTitle != "" {
		return payload.BookTitle
	}
	if payload.Book != nil && payload.Book.Title != "" {
		return payload.Book.Title
	}
	if payload.TitleUpper != "" {
		return payload.TitleUpper
	}
	return payload.Title
}
