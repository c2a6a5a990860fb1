package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/ytradar/pkg/snapshot"
	"github.com/elonfeng/ytradar/pkg/topic"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNoSnapshots is returned when the store holds no snapshot.
var ErrNoSnapshots = errors.New("no snapshots stored")

// Store persists raw item records grouped by snapshot timestamp.
type Store interface {
	SaveSnapshot(ctx context.Context, records []snapshot.ItemRecord) error
	ListSnapshots(ctx context.Context) ([]snapshot.Summary, error)
	LatestSnapshot(ctx context.Context) (time.Time, error)
	LoadRecords(ctx context.Context, since time.Time) ([]snapshot.ItemRecord, error)
	Close() error
}

// SQLStore implements Store on SQLite or PostgreSQL.
type SQLStore struct {
	db     *sqlx.DB
	logger *log.Logger
}

// New opens the database and runs migrations. For sqlite dsn is a file path.
func New(driver, dsn string) (*SQLStore, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		db, err = sqlx.Open("sqlite", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	case DriverPostgres:
		db, err = sqlx.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s %s: %w", driver, dsn, err)
	}

	if _, err := db.Exec(schemaFor(driver)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLStore{db: db, logger: log.New(io.Discard)}, nil
}

// WithLogger sets the logger used to report rows that load with defects.
func (s *SQLStore) WithLogger(logger *log.Logger) *SQLStore {
	s.logger = logger.WithPrefix("store")
	return s
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// recordRow is the column layout of item_snapshots.
type recordRow struct {
	SnapshotTS   int64           `db:"snapshot_ts"`
	CategoryID   string          `db:"category_id"`
	ItemID       string          `db:"item_id"`
	CategoryName string          `db:"category_name"`
	Title        string          `db:"title"`
	ChannelTitle string          `db:"channel_title"`
	Views        int64           `db:"views"`
	PublishedAt  sql.NullInt64   `db:"published_at"`
	ViewsPerHour sql.NullFloat64 `db:"views_per_hour"`
	DurationSec  int             `db:"duration_sec"`
	IsShort      bool            `db:"is_short"`
	TagFields    string          `db:"tag_fields"`
}

func toRow(rec *snapshot.ItemRecord) (recordRow, error) {
	fields := rec.TagFields
	if fields == nil {
		fields = []topic.RawTagField{}
	}
	tagsJSON, err := json.Marshal(fields)
	if err != nil {
		return recordRow{}, fmt.Errorf("encode tag fields of %s: %w", rec.ItemID, err)
	}

	row := recordRow{
		SnapshotTS:   rec.SnapshotTS.UnixNano(),
		CategoryID:   rec.CategoryID,
		ItemID:       rec.ItemID,
		CategoryName: rec.CategoryName,
		Title:        rec.Title,
		ChannelTitle: rec.ChannelTitle,
		Views:        rec.Views,
		DurationSec:  rec.DurationSec,
		IsShort:      rec.IsShort,
		TagFields:    string(tagsJSON),
	}
	if !rec.PublishedAt.IsZero() {
		row.PublishedAt = sql.NullInt64{Int64: rec.PublishedAt.UnixNano(), Valid: true}
	}
	if !math.IsNaN(rec.ViewsPerHour) && !math.IsInf(rec.ViewsPerHour, 0) {
		row.ViewsPerHour = sql.NullFloat64{Float64: rec.ViewsPerHour, Valid: true}
	}
	return row, nil
}

// record converts the row. A tag_fields column that does not decode leaves
// the record without tags and is reported as the error.
func (r *recordRow) record() (snapshot.ItemRecord, error) {
	rec := snapshot.ItemRecord{
		ItemID:       r.ItemID,
		SnapshotTS:   time.Unix(0, r.SnapshotTS).UTC(),
		CategoryID:   r.CategoryID,
		CategoryName: r.CategoryName,
		Title:        r.Title,
		ChannelTitle: r.ChannelTitle,
		Views:        r.Views,
		ViewsPerHour: math.NaN(),
		DurationSec:  r.DurationSec,
		IsShort:      r.IsShort,
	}
	if r.PublishedAt.Valid {
		rec.PublishedAt = time.Unix(0, r.PublishedAt.Int64).UTC()
	}
	if r.ViewsPerHour.Valid {
		rec.ViewsPerHour = r.ViewsPerHour.Float64
	}
	if err := json.Unmarshal([]byte(r.TagFields), &rec.TagFields); err != nil {
		rec.TagFields = nil
		return rec, fmt.Errorf("decode tag_fields: %w", err)
	}
	return rec, nil
}

const upsertRecord = `
	INSERT INTO item_snapshots (snapshot_ts, category_id, item_id, category_name, title, channel_title,
		views, published_at, views_per_hour, duration_sec, is_short, tag_fields)
	VALUES (:snapshot_ts, :category_id, :item_id, :category_name, :title, :channel_title,
		:views, :published_at, :views_per_hour, :duration_sec, :is_short, :tag_fields)
	ON CONFLICT (snapshot_ts, category_id, item_id) DO UPDATE SET
		category_name = excluded.category_name,
		title = excluded.title,
		channel_title = excluded.channel_title,
		views = excluded.views,
		published_at = excluded.published_at,
		views_per_hour = excluded.views_per_hour,
		duration_sec = excluded.duration_sec,
		is_short = excluded.is_short,
		tag_fields = excluded.tag_fields
`

// SaveSnapshot writes records in one transaction. Records already stored
// under the same snapshot, category and item are replaced.
func (s *SQLStore) SaveSnapshot(ctx context.Context, records []snapshot.ItemRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, upsertRecord)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		row, err := toRow(&records[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("save item %s: %w", records[i].ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns per-snapshot counts in time order.
func (s *SQLStore) ListSnapshots(ctx context.Context) ([]snapshot.Summary, error) {
	var rows []struct {
		SnapshotTS int64 `db:"snapshot_ts"`
		Videos     int   `db:"videos"`
		Categories int   `db:"categories"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT snapshot_ts, COUNT(DISTINCT item_id) AS videos, COUNT(DISTINCT category_id) AS categories
		FROM item_snapshots
		GROUP BY snapshot_ts
		ORDER BY snapshot_ts
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	out := make([]snapshot.Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, snapshot.Summary{
			SnapshotTS: time.Unix(0, r.SnapshotTS).UTC(),
			Videos:     r.Videos,
			Categories: r.Categories,
		})
	}
	return out, nil
}

// LatestSnapshot returns the newest snapshot timestamp.
func (s *SQLStore) LatestSnapshot(ctx context.Context) (time.Time, error) {
	var ts sql.NullInt64
	if err := s.db.GetContext(ctx, &ts, "SELECT MAX(snapshot_ts) FROM item_snapshots"); err != nil {
		return time.Time{}, fmt.Errorf("latest snapshot: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, ErrNoSnapshots
	}
	return time.Unix(0, ts.Int64).UTC(), nil
}

// LoadRecords returns every record captured at or after since. A zero since
// loads everything.
func (s *SQLStore) LoadRecords(ctx context.Context, since time.Time) ([]snapshot.ItemRecord, error) {
	query := "SELECT * FROM item_snapshots"
	var args []any
	if !since.IsZero() {
		query += " WHERE snapshot_ts >= ?"
		args = append(args, since.UnixNano())
	}
	query += " ORDER BY snapshot_ts, category_id, item_id"

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	out := make([]snapshot.ItemRecord, 0, len(rows))
	corrupt := 0
	for i := range rows {
		rec, err := rows[i].record()
		if err != nil {
			corrupt++
			s.logger.Warn("record loaded without tags",
				"item", rec.ItemID, "category", rec.CategoryID, "snapshot", rec.SnapshotTS, "err", err)
		}
		out = append(out, rec)
	}
	if corrupt > 0 {
		s.logger.Warn("records with corrupt tag fields", "count", corrupt)
	}
	return out, nil
}
