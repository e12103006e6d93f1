// Package session provides conversation session persistence for guest
// chats. Each session is one guest's conversation history, stored as a
// JSONL file under the data directory.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/festivo/festivo/internal/provider"
)

// Message is one chat turn in a session.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Session is one guest's conversation.
type Session struct {
	Key       string    `json:"key"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	mu        sync.RWMutex
}

// NewSession creates an empty session with the given key.
func NewSession(key string) *Session {
	now := time.Now()
	return &Session{Key: key, Messages: []Message{}, CreatedAt: now, UpdatedAt: now}
}

// AddMessage appends a chat turn.
func (s *Session) AddMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: time.Now()})
	s.UpdatedAt = time.Now()
}

// History returns up to maxMessages of the most recent turns, oldest first.
func (s *Session) History(maxMessages int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if maxMessages <= 0 || len(s.Messages) <= maxMessages {
		out := make([]Message, len(s.Messages))
		copy(out, s.Messages)
		return out
	}
	out := make([]Message, maxMessages)
	copy(out, s.Messages[len(s.Messages)-maxMessages:])
	return out
}

// ProviderHistory converts the recent history into provider messages for
// the agent's prompt.
func (s *Session) ProviderHistory(maxMessages int) []provider.Message {
	history := s.History(maxMessages)
	out := make([]provider.Message, 0, len(history))
	for _, m := range history {
		out = append(out, provider.TextMessage(m.Role, m.Content))
	}
	return out
}

// Clear removes all turns.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = []Message{}
	s.UpdatedAt = time.Now()
}

// Manager persists sessions to a directory, one JSONL file per session.
type Manager struct {
	dir   string
	cache map[string]*Session
	mu    sync.Mutex
}

// NewManager creates a session manager rooted at dir.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Manager{dir: dir, cache: make(map[string]*Session)}, nil
}

// GetOrCreate returns the session for key, loading it from disk if needed.
func (m *Manager) GetOrCreate(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.cache[key]; ok {
		return s
	}
	s := m.load(key)
	if s == nil {
		s = NewSession(key)
	}
	m.cache[key] = s
	return s
}

// Save persists a session to disk.
func (m *Manager) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Create(m.sessionPath(s.Key))
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer file.Close()

	meta := map[string]any{
		"_type":      "metadata",
		"created_at": s.CreatedAt.Format(time.RFC3339),
		"updated_at": s.UpdatedAt.Format(time.RFC3339),
	}
	metaLine, _ := json.Marshal(meta)
	if _, err := file.WriteString(string(metaLine) + "\n"); err != nil {
		return err
	}
	for _, msg := range s.Messages {
		line, _ := json.Marshal(msg)
		if _, err := file.WriteString(string(line) + "\n"); err != nil {
			return err
		}
	}
	m.cache[s.Key] = s
	return nil
}

// Delete removes a session from cache and disk.
func (m *Manager) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return os.Remove(m.sessionPath(key)) == nil
}

// List returns the keys of all persisted sessions.
func (m *Manager) List() []string {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".jsonl") {
			keys = append(keys, decodeKey(strings.TrimSuffix(name, ".jsonl")))
		}
	}
	return keys
}

func (m *Manager) load(key string) *Session {
	file, err := os.Open(m.sessionPath(key))
	if err != nil {
		return nil
	}
	defer file.Close()

	s := NewSession(key)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var meta struct {
				Type      string `json:"_type"`
				CreatedAt string `json:"created_at"`
			}
			if json.Unmarshal(line, &meta) == nil && meta.Type == "metadata" {
				if t, err := time.Parse(time.RFC3339, meta.CreatedAt); err == nil {
					s.CreatedAt = t
				}
				continue
			}
		}
		var msg Message
		if json.Unmarshal(line, &msg) == nil && msg.Role != "" {
			s.Messages = append(s.Messages, msg)
		}
	}
	return s
}

func (m *Manager) sessionPath(key string) string {
	return filepath.Join(m.dir, encodeKey(key)+".jsonl")
}

// Session keys carry phone numbers and channel prefixes; keep filenames flat.
func encodeKey(key string) string {
	r := strings.NewReplacer("/", "_", ":", "_", "+", "p")
	return r.Replace(key)
}

func decodeKey(name string) string {
	return name
}
