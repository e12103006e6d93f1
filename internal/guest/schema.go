package guest

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	hosts TEXT DEFAULT '',
	event_date DATETIME,
	venue_name TEXT DEFAULT '',
	venue_address TEXT DEFAULT '',
	faq TEXT DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT 1,
	chatbot_enabled BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS guests (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	group_id TEXT NOT NULL,
	name TEXT DEFAULT '',
	phone TEXT DEFAULT '',
	is_primary BOOLEAN NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'PENDING',
	dietary_restrictions TEXT,
	notes TEXT,
	seat_label TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_guests_event ON guests(event_id);
CREATE INDEX IF NOT EXISTS idx_guests_group ON guests(group_id);
CREATE INDEX IF NOT EXISTS idx_guests_phone ON guests(phone);

CREATE TABLE IF NOT EXISTS confirmation_questions (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	question TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_confirmation_questions_event ON confirmation_questions(event_id);

CREATE TABLE IF NOT EXISTS confirmation_options (
	id TEXT PRIMARY KEY,
	question_id TEXT NOT NULL,
	label TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_confirmation_options_question ON confirmation_options(question_id);

CREATE TABLE IF NOT EXISTS confirmation_responses (
	guest_id TEXT NOT NULL,
	question_id TEXT NOT NULL,
	option_id TEXT DEFAULT '',
	custom_response TEXT DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (guest_id, question_id)
);

CREATE TABLE IF NOT EXISTS special_requests (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	guest_id TEXT NOT NULL,
	request TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_special_requests_event ON special_requests(event_id);
CREATE INDEX IF NOT EXISTS idx_special_requests_status ON special_requests(status);
`
