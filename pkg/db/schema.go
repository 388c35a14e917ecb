package db

const (
	// SchemaV1 defines the SQL statements for version 1 of the SQLite schema
	// of the 'daybookdb' component.
	//
	// entries.date holds unix milliseconds; entry_tags.position keeps the order
	// in which tags were attached so reads return them in store order.
	SchemaV1 = `
CREATE TABLE IF NOT EXISTS daybook_versions (
    component TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    created_at REAL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS authors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT NOT NULL UNIQUE,
    name VARCHAR(256) NOT NULL,
    created_at REAL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT NOT NULL UNIQUE,
    author_id INTEGER NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
    title VARCHAR(256) NOT NULL DEFAULT '',
    date INTEGER NOT NULL,
    text TEXT NOT NULL DEFAULT '',
    created_at REAL DEFAULT (unixepoch()),
    updated_at REAL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    text VARCHAR(64) NOT NULL UNIQUE,
    created_at REAL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS entry_tags (
    entry_id INTEGER NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
    tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    PRIMARY KEY (entry_id, tag_id)
);

CREATE INDEX IF NOT EXISTS entry_tags_by_position ON entry_tags (entry_id, position);

INSERT OR IGNORE INTO authors (id, uuid, name)
VALUES (1, '00000000-0000-0000-0000-000000000001', 'default');
`

	// PostgresSchemaV1 is the Postgres rendition of SchemaV1.
	PostgresSchemaV1 = `
CREATE TABLE IF NOT EXISTS daybook_versions (
    component TEXT PRIMARY KEY,
    version BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS authors (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE,
    name VARCHAR(256) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entries (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL UNIQUE,
    author_id BIGINT NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
    title VARCHAR(256) NOT NULL DEFAULT '',
    date TIMESTAMPTZ NOT NULL,
    text TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tags (
    id BIGSERIAL PRIMARY KEY,
    text VARCHAR(64) NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entry_tags (
    entry_id BIGINT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
    tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    position INT NOT NULL,
    PRIMARY KEY (entry_id, tag_id)
);

CREATE INDEX IF NOT EXISTS entry_tags_by_position ON entry_tags (entry_id, position);

INSERT INTO authors (id, uuid, name)
VALUES (1, '00000000-0000-0000-0000-000000000001', 'default')
ON CONFLICT (id) DO NOTHING;

SELECT setval(pg_get_serial_sequence('authors', 'id'), GREATEST((SELECT MAX(id) FROM authors), 1));
`
)

// DefaultAuthorID is the author seeded by every schema version. There is no
// authentication, so entries created through the API belong to it.
const DefaultAuthorID int64 = 1
