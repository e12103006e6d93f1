// Package guest provides the guest/event domain model and its persistence.
package guest

import "time"

// RSVPStatus is the attendance confirmation status of a guest.
type RSVPStatus string

const (
	RSVPPending   RSVPStatus = "PENDING"
	RSVPConfirmed RSVPStatus = "CONFIRMED"
	RSVPDeclined  RSVPStatus = "DECLINED"
	RSVPInactive  RSVPStatus = "INACTIVE"
)

// ValidRSVPStatus reports whether s is one of the known status values.
func ValidRSVPStatus(s RSVPStatus) bool {
	switch s {
	case RSVPPending, RSVPConfirmed, RSVPDeclined, RSVPInactive:
		return true
	}
	return false
}

// Guest is one guest record. A primary guest owns an invitation; companions
// belong to the primary guest's group and may be unnamed.
type Guest struct {
	ID                  string                 `json:"id"`
	EventID             string                 `json:"event_id"`
	GroupID             string                 `json:"group_id"`
	Name                string                 `json:"name"`
	Phone               string                 `json:"phone,omitempty"`
	IsPrimaryGuest      bool                   `json:"is_primary_guest"`
	Status              RSVPStatus             `json:"status"`
	DietaryRestrictions string                 `json:"dietary_restrictions,omitempty"`
	Notes               string                 `json:"notes,omitempty"`
	SeatLabel           string                 `json:"seat_label,omitempty"`
	Responses           []ConfirmationResponse `json:"responses,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// DisplayName returns the guest name, or a placeholder for unnamed companions.
func (g *Guest) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	return "unnamed companion"
}

// Event is one event a guest may be invited to.
type Event struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Hosts          string                 `json:"hosts"`
	Date           time.Time              `json:"date"`
	VenueName      string                 `json:"venue_name,omitempty"`
	VenueAddress   string                 `json:"venue_address,omitempty"`
	FAQ            string                 `json:"faq,omitempty"`
	Active         bool                   `json:"active"`
	ChatbotEnabled bool                   `json:"chatbot_enabled"`
	Confirmations  []ConfirmationQuestion `json:"confirmations,omitempty"`
}

// ConfirmationQuestion is a per-event custom confirmation question with an
// enumerated set of selectable answers.
type ConfirmationQuestion struct {
	ID       string               `json:"id"`
	EventID  string               `json:"event_id"`
	Question string               `json:"question"`
	Options  []ConfirmationOption `json:"options"`
}

// ConfirmationOption is one selectable answer for a confirmation question.
type ConfirmationOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ConfirmationResponse is a guest's answer to a confirmation question.
// At most one response exists per (guest, question) pair.
type ConfirmationResponse struct {
	GuestID        string    `json:"guest_id"`
	QuestionID     string    `json:"question_id"`
	OptionID       string    `json:"option_id,omitempty"`
	CustomResponse string    `json:"custom_response,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SpecialRequest is a free-text ticket filed for manual human review when no
// structured tool fits a guest's ask.
type SpecialRequest struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	GuestID   string    `json:"guest_id"`
	Request   string    `json:"request"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	SpecialRequestOpen     = "open"
	SpecialRequestResolved = "resolved"
)
