package api

import (
	"encoding/json"
	"strings"
	"time"

	"librahub/internal/shared"
)

// normalize.go = canonical decoding of the service's JSON shapes.
// Several endpoints return either a bare list or an object wrapping the list
// under "data" or a named field; fields are inconsistently cased across
// endpoints. Each normalizer tolerates the known variants and falls back to
// an empty value so consumers only ever see the canonical shared types.

// bookPayload accepts every field spelling the service is known to emit for
// a book record.
type bookPayload struct {
	ID             string          `json:"_id"`
	AltID          string          `json:"id"`
	BookID         string          `json:"book_id"`
	Title          string          `json:"title"`
	Author         string          `json:"author"`
	Picture        string          `json:"picture"`
	Quantity       int             `json:"quantity"`
	AvailableCount int             `json:"availableCount"`
	ReservedCount  int             `json:"reservedCount"`
	BorrowedCount  int             `json:"borrowedCount"`
	FavoritesCount int             `json:"favoritesCount"`
	Available      *bool           `json:"available"`
	IsAvailable    *bool           `json:"isAvailable"`
	Status         string          `json:"status"`
	Category       json.RawMessage `json:"category"`
	Genre          json.RawMessage `json:"genre"`
	CreatedAt      *time.Time      `json:"createdAt"`
}

func (p *bookPayload) toBook() shared.Book {
	book := shared.Book{
		Title:          p.Title,
		Author:         p.Author,
		Picture:        p.Picture,
		Quantity:       p.Quantity,
		AvailableCount: p.AvailableCount,
		ReservedCount:  p.ReservedCount,
		BorrowedCount:  p.BorrowedCount,
		FavoritesCount: p.FavoritesCount,
		Status:         shared.BookStatus(p.Status),
		CreatedAt:      p.CreatedAt,
	}

	book.ID = firstNonEmpty(p.ID, p.AltID, p.BookID)
	book.Category = append(decodeTagList(p.Category), decodeTagList(p.Genre)...)

	// Availability flag may be absent; fall back to the available count.
	switch {
	case p.Available != nil:
		book.Available = *p.Available
	case p.IsAvailable != nil:
		book.Available = *p.IsAvailable
	default:
		book.Available = p.AvailableCount > 0
	}

	return book
}

// decodeTagList accepts either a JSON array of strings or a single string.
func decodeTagList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

// NormalizeBookList decodes a book list response: a bare array, or an object
// wrapping the array under "books" or "data".
func NormalizeBookList(raw json.RawMessage) []shared.Book {
	payloads := decodeListVariants[bookPayload](raw, "books", "data")

	books := make([]shared.Book, 0, len(payloads))
	for i := range payloads {
		books = append(books, payloads[i].toBook())
	}
	return books
}

// reservationPayload tolerates bookId being either a bare identifier or an
// embedded book object depending on how the service populated the record.
type reservationPayload struct {
	ID        string          `json:"_id"`
	AltID     string          `json:"id"`
	StudentID string          `json:"studentId"`
	BookRef   json.RawMessage `json:"bookId"`
	Book      *bookPayload    `json:"book"`
	Status    string          `json:"status"`
	CreatedAt *time.Time      `json:"createdAt"`
	DueAt     *time.Time      `json:"expiresAt"`
}

func (p *reservationPayload) toReservation() shared.Reservation {
	reservation := shared.Reservation{
		ID:        firstNonEmpty(p.ID, p.AltID),
		StudentID: p.StudentID,
		Status:    shared.ReservationStatus(p.Status),
		CreatedAt: p.CreatedAt,
		DueAt:     p.DueAt,
	}

	if p.Book != nil {
		book := p.Book.toBook()
		reservation.Book = &book
		reservation.BookID = book.ID
	}

	if len(p.BookRef) > 0 {
		var id string
		if err := json.Unmarshal(p.BookRef, &id); err == nil {
			if reservation.BookID == "" {
				reservation.BookID = id
			}
		} else {
			var embedded bookPayload
			if err := json.Unmarshal(p.BookRef, &embedded); err == nil {
				book := embedded.toBook()
				if reservation.Book == nil {
					reservation.Book = &book
				}
				if reservation.BookID == "" {
					reservation.BookID = book.ID
				}
			}
		}
	}

	return reservation
}

// NormalizeReservation decodes a single reservation, unwrapping an optional
// "reservation" envelope.
func NormalizeReservation(raw json.RawMessage) *shared.Reservation {
	if len(raw) == 0 {
		return nil
	}

	var wrapper struct {
		Reservation json.RawMessage `json:"reservation"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Reservation) > 0 {
		raw = wrapper.Reservation
	}

	var payload reservationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	reservation := payload.toReservation()
	if reservation.ID == "" {
		return nil
	}
	return &reservation
}

// NormalizeReservationList decodes a reservation list response: a bare array,
// or an object wrapping the array under "reservations" or "data".
func NormalizeReservationList(raw json.RawMessage) []shared.Reservation {
	payloads := decodeListVariants[reservationPayload](raw, "reservations", "data")

	reservations := make([]shared.Reservation, 0, len(payloads))
	for i := range payloads {
		reservations = append(reservations, payloads[i].toReservation())
	}
	return reservations
}

// NormalizeFavoriteIDs flattens a favorites response to book identifiers.
// The service may return a bare array, or wrap it under "favorites", and the
// elements may be identifiers or whole book objects.
func NormalizeFavoriteIDs(raw json.RawMessage) []string {
	elements := decodeListVariants[json.RawMessage](raw, "favorites", "data")

	ids := make([]string, 0, len(elements))
	for _, element := range elements {
		var id string
		if err := json.Unmarshal(element, &id); err == nil {
			if id != "" {
				ids = append(ids, id)
			}
			continue
		}

		var book bookPayload
		if err := json.Unmarshal(element, &book); err == nil {
			if bookID := firstNonEmpty(book.ID, book.AltID, book.BookID); bookID != "" {
				ids = append(ids, bookID)
			}
		}
	}
	return ids
}

// NormalizeStudent decodes a profile response, unwrapping an optional
// "student" envelope. Returns nil when nothing decodes.
func NormalizeStudent(raw json.RawMessage) *shared.Student {
	if len(raw) == 0 {
		return nil
	}

	var wrapper struct {
		Student json.RawMessage `json:"student"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Student) > 0 {
		raw = wrapper.Student
	}

	var payload struct {
		ID       string          `json:"_id"`
		AltID    string          `json:"id"`
		Name     string          `json:"name"`
		Email    string          `json:"email"`
		Category json.RawMessage `json:"category"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	return &shared.Student{
		ID:       firstNonEmpty(payload.ID, payload.AltID),
		Name:     payload.Name,
		Email:    payload.Email,
		Category: decodeTagList(payload.Category),
	}
}

// decodeListVariants decodes a bare JSON array, or an object wrapping the
// array under one of the given keys. Anything else yields an empty list.
func decodeListVariants[T any](raw json.RawMessage, keys ...string) []T {
	if len(raw) == 0 {
		return nil
	}

	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil
	}

	for _, key := range keys {
		wrapped, ok := object[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(wrapped, &list); err == nil {
			return list
		}
	}
	return nil
}

// extractErrorMessage pulls a human-readable message out of an error body.
func extractErrorMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(data))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
