package ledger

const schema = `
CREATE TABLE IF NOT EXISTS agent_executions (
	id TEXT PRIMARY KEY,
	agent_name TEXT NOT NULL,
	parent_execution_id TEXT DEFAULT '',
	parent_iteration_id TEXT DEFAULT '',
	conversation_id TEXT DEFAULT '',
	model TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'RUNNING',
	system_prompt TEXT DEFAULT '',
	user_message TEXT DEFAULT '',
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cache_write_tokens INTEGER NOT NULL DEFAULT 0,
	cache_read_tokens INTEGER NOT NULL DEFAULT 0,
	iterations INTEGER NOT NULL DEFAULT 0,
	final_text TEXT DEFAULT '',
	error_text TEXT DEFAULT '',
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME,
	duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_executions_parent ON agent_executions(parent_execution_id);
CREATE INDEX IF NOT EXISTS idx_executions_conversation ON agent_executions(conversation_id);
CREATE INDEX IF NOT EXISTS idx_executions_status ON agent_executions(status);

CREATE TABLE IF NOT EXISTS agent_loop_iterations (
	id TEXT PRIMARY KEY,
	execution_id TEXT NOT NULL,
	number INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'RUNNING',
	input_snapshot TEXT DEFAULT '',
	output_text TEXT DEFAULT '',
	tool_calls_json TEXT DEFAULT '',
	tool_results_json TEXT DEFAULT '',
	tool_calls INTEGER NOT NULL DEFAULT 0,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	UNIQUE (execution_id, number)
);
CREATE INDEX IF NOT EXISTS idx_iterations_execution ON agent_loop_iterations(execution_id);

CREATE TABLE IF NOT EXISTS chatbot_api_calls (
	id TEXT PRIMARY KEY,
	execution_id TEXT NOT NULL,
	iteration_id TEXT DEFAULT '',
	model TEXT DEFAULT '',
	stop_reason TEXT DEFAULT '',
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cache_write_tokens INTEGER NOT NULL DEFAULT 0,
	cache_read_tokens INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error_text TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_api_calls_execution ON chatbot_api_calls(execution_id);
`
