package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"seatwatch/internal/components/assert"
	"seatwatch/internal/components/telemetry"
)

// FileStore keeps the snapshot as a JSON document on disk.
type FileStore struct {
	path string
	tel  telemetry.API
}

func NewFileStore(path string, tel telemetry.API) FileStore {
	assert.NotEmptyStr(path)
	assert.NotNil(tel)
	return FileStore{
		path: path,
		tel:  telemetry.NewScopedAPI("snapshot_file", tel),
	}
}

func (s FileStore) Path() string {
	return s.path
}

func (s FileStore) Load(ctx context.Context) Snapshot {
	contents, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.tel.ReportDebug("no previous snapshot, starting empty", s.path)
		return Snapshot{}
	}
	if err != nil {
		s.tel.ReportWarning(report_store_load, fmt.Errorf("%w: %w", ErrStoreRead, err), s.path)
		return Snapshot{}
	}

	out, err := Decode(contents)
	if err != nil {
		s.tel.ReportWarning(report_store_load, fmt.Errorf("%w: decode: %w", ErrStoreRead, err), s.path)
		return Snapshot{}
	}
	s.tel.ReportDebug("loaded snapshot", s.path, len(out))
	return out
}

// Save writes the snapshot to a temporary file next to the target and renames it into place.
func (s FileStore) Save(ctx context.Context, snap Snapshot) error {
	err := s.save(snap)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStoreWrite, err)
		s.tel.ReportBroken(report_store_save, err, s.path)
		return err
	}
	s.tel.ReportCount(report_count_saved, int64(len(snap)))
	return nil
}

func (s FileStore) save(snap Snapshot) error {
	contents, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(contents)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Sync()
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
