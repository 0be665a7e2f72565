package snapshot

import (
	"pkg.jsn.cam/rowreduce/pkg/storage"
)

// SaveFile writes s to a bbolt database at path, replacing any snapshot
// already stored there.
func SaveFile(path string, s *Snapshot) error {
	b, err := storage.NewBboltBackend(path)
	if err != nil {
		return err
	}
	defer b.Close()

	return Save(b, s)
}

// LoadFile reads the snapshot stored in the bbolt database at path.
func LoadFile(path string) (*Snapshot, error) {
	b, err := storage.OpenBboltReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	return Load(b)
}
