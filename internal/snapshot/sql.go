package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"seatwatch/internal/components/assert"
	"seatwatch/internal/components/chrono"
	"seatwatch/internal/components/telemetry"
)

const Schema = `
create table if not exists snapshot (
	key text primary key,
	contents blob not null,
	updated_at integer not null
);
`

const DefaultKey = "courses"

// SQLStore keeps the snapshot as a single row of the `snapshot` table.
type SQLStore struct {
	db   *sql.DB
	key  string
	time chrono.TimeAPI
	tel  telemetry.API
}

// NewSQLStore creates the table if needed.
func NewSQLStore(ctx context.Context, db *sql.DB, key string, time chrono.TimeAPI, tel telemetry.API) (SQLStore, error) {
	assert.NotNil(db)
	assert.NotEmptyStr(key)
	assert.NotNil(time)
	assert.NotNil(tel)

	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return SQLStore{}, fmt.Errorf("create snapshot table: %w", err)
	}
	return SQLStore{
		db:   db,
		key:  key,
		time: time,
		tel:  telemetry.NewScopedAPI("snapshot_sql", tel),
	}, nil
}

func (s SQLStore) Load(ctx context.Context) Snapshot {
	var contents []byte
	err := s.db.QueryRowContext(ctx, "select contents from snapshot where key = ?", s.key).Scan(&contents)
	if errors.Is(err, sql.ErrNoRows) {
		s.tel.ReportDebug("no previous snapshot, starting empty", s.key)
		return Snapshot{}
	}
	if err != nil {
		s.tel.ReportWarning(report_store_load, fmt.Errorf("%w: %w", ErrStoreRead, err), s.key)
		return Snapshot{}
	}

	out, err := Decode(contents)
	if err != nil {
		s.tel.ReportWarning(report_store_load, fmt.Errorf("%w: decode: %w", ErrStoreRead, err), s.key)
		return Snapshot{}
	}
	return out
}

func (s SQLStore) Save(ctx context.Context, snap Snapshot) error {
	err := s.save(ctx, snap)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStoreWrite, err)
		s.tel.ReportBroken(report_store_save, err, s.key)
		return err
	}
	s.tel.ReportCount(report_count_saved, int64(len(snap)))
	return nil
}

func (s SQLStore) save(ctx context.Context, snap Snapshot) error {
	contents, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("make tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`insert into snapshot (key, contents, updated_at) values (?, ?, ?)
		on conflict (key) do update set contents = excluded.contents, updated_at = excluded.updated_at`,
		s.key, contents, s.time.Now().Unix(),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}
