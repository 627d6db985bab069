package shared

import "time"

// shared types across the application
// 1st: book catalog records as returned by the library service
// 2nd: reservation lifecycle records
// 3rd: student profile + notification projections
// add more shared types as needed

// BookStatus as reported by the library service
type BookStatus string

const (
	BookAvailable    BookStatus = "Available"
	BookReserved     BookStatus = "Reserved"
	BookBorrowed     BookStatus = "Borrowed"
	BookNotAvailable BookStatus = "Not Available"
	BookLost         BookStatus = "Lost"
)

// ReservationStatus transitions are server-authoritative; the client only
// displays whichever status the server last reported.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationReserved  ReservationStatus = "reserved"
	ReservationApproved  ReservationStatus = "approved"
	ReservationBorrowed  ReservationStatus = "borrowed"
	ReservationReturned  ReservationStatus = "returned"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Book represents a catalog record
type Book struct {
	ID             string     `json:"_id"`                      // book identifier (Mongo-style id from the service)
	Title          string     `json:"title"`                    // book title
	Author         string     `json:"author,omitempty"`         // book author
	Picture        string     `json:"picture,omitempty"`        // cover image URL
	Quantity       int        `json:"quantity,omitempty"`       // total copies owned
	AvailableCount int        `json:"availableCount,omitempty"` // copies currently available
	ReservedCount  int        `json:"reservedCount,omitempty"`  // copies reserved
	BorrowedCount  int        `json:"borrowedCount,omitempty"`  // copies borrowed
	FavoritesCount int        `json:"favoritesCount,omitempty"` // popularity counter used for ranking
	Available      bool       `json:"available"`                // availability flag patched locally on reserve/cancel
	Status         BookStatus `json:"status,omitempty"`         // service-reported status
	Category       []string   `json:"category,omitempty"`       // category tags
	CreatedAt      *time.Time `json:"createdAt,omitempty"`      // when the record was added
}

// Reservation represents one reservation of the current student.
// Book is an embedded snapshot when the service populates it; BookID is
// always usable as the reference.
type Reservation struct {
	ID        string            `json:"_id"`                 // reservation identifier
	StudentID string            `json:"studentId,omitempty"` // owning student
	BookID    string            `json:"bookId,omitempty"`    // referenced book identifier
	Book      *Book             `json:"book,omitempty"`      // embedded book snapshot, may be nil
	Status    ReservationStatus `json:"status"`              // server-reported lifecycle status
	CreatedAt *time.Time        `json:"createdAt,omitempty"` // when the reservation was created
	DueAt     *time.Time        `json:"expiresAt,omitempty"` // due/expiry timestamp computed by the service
}

// Student is the authenticated profile returned by /api/students/me
type Student struct {
	ID       string   `json:"_id"`                // student identifier
	Name     string   `json:"name,omitempty"`     // display name
	Email    string   `json:"email,omitempty"`    // account email
	Category []string `json:"category,omitempty"` // preferred book categories, drives recommendations
}

// Notification is a purely client-side projection of push events. The ID is
// generated locally; there is no server-side counterpart.
type Notification struct {
	ID      string `json:"id"`      // client-generated identifier (uuid)
	Title   string `json:"title"`   // short headline
	Message string `json:"message"` // human-readable body
	Date    string `json:"date"`    // display-formatted timestamp
	Read    bool   `json:"read"`    // read/unread flag
}
