package guest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is the persistence boundary the tools write through. The agents
// never touch it directly.
type Store interface {
	PrimaryGuestsByPhone(ctx context.Context, phone string) ([]*Guest, error)
	Companions(ctx context.Context, groupID, primaryID string) ([]*Guest, error)
	GuestByID(ctx context.Context, guestID string) (*Guest, error)
	EventDetail(ctx context.Context, eventID string) (*Event, error)

	UpdateRSVP(ctx context.Context, guestID string, status RSVPStatus) error
	UpdateDietaryRestrictions(ctx context.Context, guestID, restrictions string) error
	UpdateNotes(ctx context.Context, guestID, notes string) error
	RenameGuest(ctx context.Context, guestID, name string) error
	UpsertConfirmationResponse(ctx context.Context, resp ConfirmationResponse) error
	CreateSpecialRequest(ctx context.Context, eventID, guestID, request string) (*SpecialRequest, error)
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the guest database at dbPath and applies the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open guest db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply guest schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewStoreFromDB wraps an already-open database handle. Used by tests that
// supply an alternate driver.
func NewStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply guest schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying handle for shared access.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Close() error { return s.db.Close() }

const guestColumns = `id, event_id, group_id, name, phone, is_primary, status,
	COALESCE(dietary_restrictions, ''), COALESCE(notes, ''), seat_label, created_at, updated_at`

func scanGuest(row interface{ Scan(...any) error }) (*Guest, error) {
	var g Guest
	if err := row.Scan(&g.ID, &g.EventID, &g.GroupID, &g.Name, &g.Phone, &g.IsPrimaryGuest,
		&g.Status, &g.DietaryRestrictions, &g.Notes, &g.SeatLabel, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// PrimaryGuestsByPhone returns the primary guest records for a phone number,
// one per event it is invited to.
func (s *SQLiteStore) PrimaryGuestsByPhone(ctx context.Context, phone string) ([]*Guest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE phone = ? AND is_primary = 1 ORDER BY created_at`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		if err := s.loadResponses(ctx, g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Companions returns the non-primary members of a guest group.
func (s *SQLiteStore) Companions(ctx context.Context, groupID, primaryID string) ([]*Guest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE group_id = ? AND id != ? ORDER BY created_at`, groupID, primaryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		if err := s.loadResponses(ctx, g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GuestByID returns one guest record.
func (s *SQLiteStore) GuestByID(ctx context.Context, guestID string) (*Guest, error) {
	g, err := scanGuest(s.db.QueryRowContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE id = ?`, guestID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("guest not found: %s", guestID)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadResponses(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *SQLiteStore) loadResponses(ctx context.Context, g *Guest) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT guest_id, question_id, option_id, custom_response, updated_at
		 FROM confirmation_responses WHERE guest_id = ?`, g.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r ConfirmationResponse
		if err := rows.Scan(&r.GuestID, &r.QuestionID, &r.OptionID, &r.CustomResponse, &r.UpdatedAt); err != nil {
			return err
		}
		g.Responses = append(g.Responses, r)
	}
	return rows.Err()
}

// EventDetail returns one event with its confirmation questions and options.
func (s *SQLiteStore) EventDetail(ctx context.Context, eventID string) (*Event, error) {
	var e Event
	var date sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, hosts, event_date, venue_name, venue_address, faq, active, chatbot_enabled
		 FROM events WHERE id = ?`, eventID).
		Scan(&e.ID, &e.Name, &e.Hosts, &date, &e.VenueName, &e.VenueAddress, &e.FAQ, &e.Active, &e.ChatbotEnabled)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("event not found: %s", eventID)
	}
	if err != nil {
		return nil, err
	}
	if date.Valid {
		e.Date = date.Time
	}

	qRows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, question FROM confirmation_questions WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, err
	}
	defer qRows.Close()
	for qRows.Next() {
		var q ConfirmationQuestion
		if err := qRows.Scan(&q.ID, &q.EventID, &q.Question); err != nil {
			return nil, err
		}
		oRows, err := s.db.QueryContext(ctx,
			`SELECT id, label FROM confirmation_options WHERE question_id = ?`, q.ID)
		if err != nil {
			return nil, err
		}
		for oRows.Next() {
			var o ConfirmationOption
			if err := oRows.Scan(&o.ID, &o.Label); err != nil {
				oRows.Close()
				return nil, err
			}
			q.Options = append(q.Options, o)
		}
		oRows.Close()
		if err := oRows.Err(); err != nil {
			return nil, err
		}
		e.Confirmations = append(e.Confirmations, q)
	}
	return &e, qRows.Err()
}

func (s *SQLiteStore) touchGuest(ctx context.Context, guestID, column string, value any) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE guests SET `+column+` = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, value, guestID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("guest not found: %s", guestID)
	}
	return nil
}

// UpdateRSVP sets a guest's RSVP status.
func (s *SQLiteStore) UpdateRSVP(ctx context.Context, guestID string, status RSVPStatus) error {
	if !ValidRSVPStatus(status) {
		return fmt.Errorf("invalid rsvp status: %s", status)
	}
	return s.touchGuest(ctx, guestID, "status", string(status))
}

// UpdateDietaryRestrictions sets a guest's dietary restrictions text.
func (s *SQLiteStore) UpdateDietaryRestrictions(ctx context.Context, guestID, restrictions string) error {
	return s.touchGuest(ctx, guestID, "dietary_restrictions", restrictions)
}

// UpdateNotes replaces a guest's free-text notes.
func (s *SQLiteStore) UpdateNotes(ctx context.Context, guestID, notes string) error {
	return s.touchGuest(ctx, guestID, "notes", notes)
}

// RenameGuest reassigns a guest's name. This is how an unnamed or misnamed
// companion is swapped for a different real person.
func (s *SQLiteStore) RenameGuest(ctx context.Context, guestID, name string) error {
	return s.touchGuest(ctx, guestID, "name", name)
}

// UpsertConfirmationResponse stores a guest's answer to a confirmation
// question. At most one row exists per (guest, question): a second answer
// replaces the first.
func (s *SQLiteStore) UpsertConfirmationResponse(ctx context.Context, resp ConfirmationResponse) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO confirmation_responses (guest_id, question_id, option_id, custom_response, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(guest_id, question_id) DO UPDATE SET
			option_id = excluded.option_id,
			custom_response = excluded.custom_response,
			updated_at = CURRENT_TIMESTAMP`,
		resp.GuestID, resp.QuestionID, resp.OptionID, resp.CustomResponse)
	return err
}

// CreateSpecialRequest files a free-text ticket for manual host review.
func (s *SQLiteStore) CreateSpecialRequest(ctx context.Context, eventID, guestID, request string) (*SpecialRequest, error) {
	sr := &SpecialRequest{
		ID:        uuid.NewString(),
		EventID:   eventID,
		GuestID:   guestID,
		Request:   request,
		Status:    SpecialRequestOpen,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO special_requests (id, event_id, guest_id, request, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sr.ID, sr.EventID, sr.GuestID, sr.Request, sr.Status, sr.CreatedAt)
	if err != nil {
		return nil, err
	}
	return sr, nil
}

// OpenSpecialRequests lists unresolved special requests for an event.
func (s *SQLiteStore) OpenSpecialRequests(ctx context.Context, eventID string) ([]*SpecialRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, guest_id, request, status, created_at
		 FROM special_requests WHERE event_id = ? AND status = ? ORDER BY created_at`,
		eventID, SpecialRequestOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*SpecialRequest
	for rows.Next() {
		var sr SpecialRequest
		if err := rows.Scan(&sr.ID, &sr.EventID, &sr.GuestID, &sr.Request, &sr.Status, &sr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &sr)
	}
	return out, rows.Err()
}

// --- seeding helpers (used by the CLI and tests) ---

// CreateEvent inserts an event row.
func (s *SQLiteStore) CreateEvent(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, name, hosts, event_date, venue_name, venue_address, faq, active, chatbot_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Hosts, e.Date, e.VenueName, e.VenueAddress, e.FAQ, e.Active, e.ChatbotEnabled)
	return err
}

// CreateGuest inserts a guest row.
func (s *SQLiteStore) CreateGuest(ctx context.Context, g *Guest) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.GroupID == "" {
		g.GroupID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = RSVPPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guests (id, event_id, group_id, name, phone, is_primary, status, dietary_restrictions, notes, seat_label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.EventID, g.GroupID, g.Name, g.Phone, g.IsPrimaryGuest, string(g.Status),
		nullable(g.DietaryRestrictions), nullable(g.Notes), g.SeatLabel)
	return err
}

// CreateConfirmationQuestion inserts a question and its options.
func (s *SQLiteStore) CreateConfirmationQuestion(ctx context.Context, q *ConfirmationQuestion) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO confirmation_questions (id, event_id, question) VALUES (?, ?, ?)`,
		q.ID, q.EventID, q.Question); err != nil {
		return err
	}
	for i := range q.Options {
		if q.Options[i].ID == "" {
			q.Options[i].ID = uuid.NewString()
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO confirmation_options (id, question_id, label) VALUES (?, ?, ?)`,
			q.Options[i].ID, q.ID, q.Options[i].Label); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
