package store

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS item_snapshots (
    snapshot_ts    INTEGER NOT NULL,
    category_id    TEXT NOT NULL,
    item_id        TEXT NOT NULL,
    category_name  TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    channel_title  TEXT NOT NULL DEFAULT '',
    views          INTEGER NOT NULL DEFAULT 0,
    published_at   INTEGER,
    views_per_hour REAL,
    duration_sec   INTEGER NOT NULL DEFAULT 0,
    is_short       BOOLEAN NOT NULL DEFAULT 0,
    tag_fields     TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY (snapshot_ts, category_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_item_snapshots_item ON item_snapshots(item_id);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS item_snapshots (
    snapshot_ts    BIGINT NOT NULL,
    category_id    TEXT NOT NULL,
    item_id        TEXT NOT NULL,
    category_name  TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    channel_title  TEXT NOT NULL DEFAULT '',
    views          BIGINT NOT NULL DEFAULT 0,
    published_at   BIGINT,
    views_per_hour DOUBLE PRECISION,
    duration_sec   INTEGER NOT NULL DEFAULT 0,
    is_short       BOOLEAN NOT NULL DEFAULT FALSE,
    tag_fields     TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY (snapshot_ts, category_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_item_snapshots_item ON item_snapshots(item_id);
`

func schemaFor(driver string) string {
	if driver == DriverPostgres {
		return postgresSchema
	}
	return sqliteSchema
}
