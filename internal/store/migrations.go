package store

// migration represents a single schema migration with one DDL per driver.
type migration struct {
	Version  int
	Name     string
	SQLite   string
	Postgres string
}

// migrations is the ordered list of all schema migrations. Times are unix
// milliseconds.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create bets",
		SQLite: `
			CREATE TABLE bet_rounds (
				id         TEXT PRIMARY KEY,
				channel    TEXT NOT NULL,
				question   TEXT NOT NULL,
				opened_by  TEXT NOT NULL,
				status     TEXT NOT NULL DEFAULT 'open',
				outcome    TEXT NOT NULL DEFAULT '',
				created_at BIGINT NOT NULL,
				closed_at  BIGINT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_bet_rounds_channel ON bet_rounds (channel, status);

			CREATE TABLE bet_wagers (
				round_id  TEXT NOT NULL REFERENCES bet_rounds(id) ON DELETE CASCADE,
				user_name TEXT NOT NULL,
				side      TEXT NOT NULL,
				amount    BIGINT NOT NULL,
				PRIMARY KEY (round_id, user_name)
			);

			CREATE TABLE bet_balances (
				channel   TEXT NOT NULL,
				user_name TEXT NOT NULL,
				points    BIGINT NOT NULL,
				PRIMARY KEY (channel, user_name)
			);
		`,
		Postgres: `
			CREATE TABLE bet_rounds (
				id         TEXT PRIMARY KEY,
				channel    TEXT NOT NULL,
				question   TEXT NOT NULL,
				opened_by  TEXT NOT NULL,
				status     TEXT NOT NULL DEFAULT 'open',
				outcome    TEXT NOT NULL DEFAULT '',
				created_at BIGINT NOT NULL,
				closed_at  BIGINT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_bet_rounds_channel ON bet_rounds (channel, status);

			CREATE TABLE bet_wagers (
				round_id  TEXT NOT NULL REFERENCES bet_rounds(id) ON DELETE CASCADE,
				user_name TEXT NOT NULL,
				side      TEXT NOT NULL,
				amount    BIGINT NOT NULL,
				PRIMARY KEY (round_id, user_name)
			);

			CREATE TABLE bet_balances (
				channel   TEXT NOT NULL,
				user_name TEXT NOT NULL,
				points    BIGINT NOT NULL,
				PRIMARY KEY (channel, user_name)
			);
		`,
	},
	{
		Version: 2,
		Name:    "create chat log",
		SQLite: `
			CREATE TABLE chat_messages (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				channel     TEXT NOT NULL,
				user_name   TEXT NOT NULL,
				user_id     BIGINT NOT NULL DEFAULT 0,
				text        TEXT NOT NULL,
				badges      TEXT NOT NULL DEFAULT '',
				sent_at     BIGINT NOT NULL DEFAULT 0,
				received_at BIGINT NOT NULL
			);

			CREATE INDEX idx_chat_messages_channel ON chat_messages (channel, id);
			CREATE INDEX idx_chat_messages_user ON chat_messages (channel, user_name);
		`,
		Postgres: `
			CREATE TABLE chat_messages (
				id          BIGSERIAL PRIMARY KEY,
				channel     TEXT NOT NULL,
				user_name   TEXT NOT NULL,
				user_id     BIGINT NOT NULL DEFAULT 0,
				text        TEXT NOT NULL,
				badges      TEXT NOT NULL DEFAULT '',
				sent_at     BIGINT NOT NULL DEFAULT 0,
				received_at BIGINT NOT NULL
			);

			CREATE INDEX idx_chat_messages_channel ON chat_messages (channel, id);
			CREATE INDEX idx_chat_messages_user ON chat_messages (channel, user_name);
		`,
	},
}
