package store

import (
	"context"
	"database/sql"
)

// schema is the durable layout of the vault file. Every binary column holds
// raw bytes exactly as produced by the envelope package.
const schema = `
CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	name           TEXT PRIMARY KEY,
	key_nonce      BLOB NOT NULL,
	key_tag        BLOB NOT NULL,
	key_ciphertext BLOB NOT NULL,
	created_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS details (
	project               TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE ON UPDATE CASCADE,
	key                   TEXT NOT NULL,
	value_nonce           BLOB NOT NULL,
	value_tag             BLOB NOT NULL,
	value_ciphertext      BLOB NOT NULL,
	master_wrapped_nonce  BLOB NOT NULL,
	master_wrapped_tag    BLOB NOT NULL,
	master_wrapped_key    BLOB NOT NULL,
	project_wrapped_nonce BLOB NOT NULL,
	project_wrapped_tag   BLOB NOT NULL,
	project_wrapped_key   BLOB NOT NULL,
	updated_at            INTEGER NOT NULL,
	PRIMARY KEY (project, key)
);

CREATE TABLE IF NOT EXISTS sessions (
	id          BLOB PRIMARY KEY,
	nonce       BLOB NOT NULL,
	tag         BLOB NOT NULL,
	wrapped_key BLOB NOT NULL,
	expires_at  INTEGER NOT NULL
);
`

func createSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
