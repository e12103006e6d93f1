package ledger

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists ledger events to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder opens the ledger database at dbPath and applies the schema.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

// NewRecorderFromDB wraps an already-open database handle.
func NewRecorderFromDB(db *sql.DB) (*SQLiteRecorder, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

func (r *SQLiteRecorder) Close() error { return r.db.Close() }

func (r *SQLiteRecorder) ExecutionStarted(exec *Execution) error {
	_, err := r.db.Exec(`
		INSERT INTO agent_executions
			(id, agent_name, parent_execution_id, parent_iteration_id, conversation_id,
			 model, status, system_prompt, user_message, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.AgentName, exec.ParentExecutionID, exec.ParentIterationID,
		exec.ConversationID, exec.Model, StatusRunning,
		exec.SystemPrompt, exec.UserMessage, exec.StartedAt)
	return err
}

func (r *SQLiteRecorder) IterationStarted(iter *Iteration) error {
	_, err := r.db.Exec(`
		INSERT INTO agent_loop_iterations (id, execution_id, number, status, input_snapshot, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		iter.ID, iter.ExecutionID, iter.Number, StatusRunning, iter.InputSnapshot, iter.StartedAt)
	return err
}

func (r *SQLiteRecorder) IterationCompleted(iter *Iteration) error {
	_, err := r.db.Exec(`
		UPDATE agent_loop_iterations
		SET status = ?, output_text = ?, tool_calls_json = ?, tool_results_json = ?,
			tool_calls = ?, input_tokens = ?, output_tokens = ?, completed_at = ?, duration_ms = ?
		WHERE id = ?`,
		iter.Status, iter.OutputText, iter.ToolCallsJSON, iter.ToolResultsJSON,
		iter.ToolCalls, iter.InputTokens, iter.OutputTokens,
		iter.CompletedAt, iter.DurationMS, iter.ID)
	return err
}

func (r *SQLiteRecorder) APICallLogged(call *APICall) error {
	_, err := r.db.Exec(`
		INSERT INTO chatbot_api_calls
			(id, execution_id, iteration_id, model, stop_reason,
			 input_tokens, output_tokens, cache_write_tokens, cache_read_tokens,
			 duration_ms, error_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		call.ID, call.ExecutionID, call.IterationID, call.Model, call.StopReason,
		call.InputTokens, call.OutputTokens, call.CacheWriteTokens, call.CacheReadTokens,
		call.DurationMS, call.ErrorText, call.CreatedAt)
	return err
}

func (r *SQLiteRecorder) ExecutionCompleted(exec *Execution) error {
	_, err := r.db.Exec(`
		UPDATE agent_executions
		SET status = ?, input_tokens = ?, output_tokens = ?,
			cache_write_tokens = ?, cache_read_tokens = ?,
			iterations = ?, final_text = ?, error_text = ?,
			completed_at = ?, duration_ms = ?
		WHERE id = ?`,
		exec.Status, exec.InputTokens, exec.OutputTokens,
		exec.CacheWriteTokens, exec.CacheReadTokens,
		exec.Iterations, exec.FinalText, exec.ErrorText,
		exec.CompletedAt, exec.DurationMS, exec.ID)
	return err
}

// ExecutionByID loads one execution row. Used by the CLI inspection commands.
func (r *SQLiteRecorder) ExecutionByID(id string) (*Execution, error) {
	var e Execution
	var completed sql.NullTime
	err := r.db.QueryRow(`
		SELECT id, agent_name, parent_execution_id, parent_iteration_id, conversation_id,
			model, status, system_prompt, user_message,
			input_tokens, output_tokens, cache_write_tokens, cache_read_tokens,
			iterations, final_text, error_text, started_at, completed_at, duration_ms
		FROM agent_executions WHERE id = ?`, id).
		Scan(&e.ID, &e.AgentName, &e.ParentExecutionID, &e.ParentIterationID, &e.ConversationID,
			&e.Model, &e.Status, &e.SystemPrompt, &e.UserMessage,
			&e.InputTokens, &e.OutputTokens, &e.CacheWriteTokens, &e.CacheReadTokens,
			&e.Iterations, &e.FinalText, &e.ErrorText, &e.StartedAt, &completed, &e.DurationMS)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("execution not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		e.CompletedAt = completed.Time
	}
	return &e, nil
}

// RecentExecutions lists the latest top-level executions, newest first.
func (r *SQLiteRecorder) RecentExecutions(limit int) ([]*Execution, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`
		SELECT id, agent_name, conversation_id, model, status,
			input_tokens, output_tokens, cache_write_tokens, cache_read_tokens,
			iterations, started_at, duration_ms
		FROM agent_executions
		WHERE parent_execution_id = ''
		ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Execution
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.ID, &e.AgentName, &e.ConversationID, &e.Model, &e.Status,
			&e.InputTokens, &e.OutputTokens, &e.CacheWriteTokens, &e.CacheReadTokens,
			&e.Iterations, &e.StartedAt, &e.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ChildExecutions lists sub-agent executions spawned from a parent execution.
func (r *SQLiteRecorder) ChildExecutions(parentID string) ([]*Execution, error) {
	rows, err := r.db.Query(`
		SELECT id, agent_name, parent_iteration_id, model, status,
			input_tokens, output_tokens, iterations, started_at, duration_ms
		FROM agent_executions
		WHERE parent_execution_id = ?
		ORDER BY started_at`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Execution
	for rows.Next() {
		var e Execution
		e.ParentExecutionID = parentID
		if err := rows.Scan(&e.ID, &e.AgentName, &e.ParentIterationID, &e.Model, &e.Status,
			&e.InputTokens, &e.OutputTokens, &e.Iterations, &e.StartedAt, &e.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// IterationsFor lists the loop iterations of an execution in order.
func (r *SQLiteRecorder) IterationsFor(executionID string) ([]*Iteration, error) {
	rows, err := r.db.Query(`
		SELECT id, execution_id, number, status, input_snapshot, output_text,
			tool_calls_json, tool_results_json, tool_calls, input_tokens, output_tokens,
			started_at, completed_at, duration_ms
		FROM agent_loop_iterations
		WHERE execution_id = ? ORDER BY number`, executionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Iteration
	for rows.Next() {
		var it Iteration
		var completed sql.NullTime
		if err := rows.Scan(&it.ID, &it.ExecutionID, &it.Number, &it.Status,
			&it.InputSnapshot, &it.OutputText, &it.ToolCallsJSON, &it.ToolResultsJSON,
			&it.ToolCalls, &it.InputTokens, &it.OutputTokens,
			&it.StartedAt, &completed, &it.DurationMS); err != nil {
			return nil, err
		}
		if completed.Valid {
			it.CompletedAt = completed.Time
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

// APICallsFor lists the API calls of an execution in order.
func (r *SQLiteRecorder) APICallsFor(executionID string) ([]*APICall, error) {
	rows, err := r.db.Query(`
		SELECT id, execution_id, iteration_id, model, stop_reason,
			input_tokens, output_tokens, cache_write_tokens, cache_read_tokens,
			duration_ms, error_text, created_at
		FROM chatbot_api_calls
		WHERE execution_id = ? ORDER BY created_at`, executionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*APICall
	for rows.Next() {
		var c APICall
		if err := rows.Scan(&c.ID, &c.ExecutionID, &c.IterationID, &c.Model, &c.StopReason,
			&c.InputTokens, &c.OutputTokens, &c.CacheWriteTokens, &c.CacheReadTokens,
			&c.DurationMS, &c.ErrorText, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

var _ Recorder = (*SQLiteRecorder)(nil)
