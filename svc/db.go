package svc

import (
	"encoding/json"
	"log/slog"
	"os"

	"go.etcd.io/bbolt"
)

// getFromDb returns the typed value stored under id, or nil if absent.
func getFromDb[
	T any](db *bbolt.DB, bucket []byte, id []byte,
	unmarshal func(data []byte, v *T) error,
) (*T, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	r := (*T)(nil)

	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		v := b.Get(id)
		if v == nil {
			return nil
		}
		r = new(T)
		if err := unmarshal(v, r); err != nil {
			r = nil
			return err
		}

		return nil
	})

	return r, err
}

func putToDb[T any](db *bbolt.DB, bucket []byte, id []byte, v T, marshal func(v T) ([]byte, error)) error {
	if db == nil {
		return ErrNilDB
	}

	return db.Update(
		func(tx *bbolt.Tx) error {
			b, err := tx.CreateBucketIfNotExists(bucket)
			if err != nil {
				return err
			}
			data, err := marshal(v)
			if err != nil {
				return err
			}
			return b.Put(id, data)
		})
}

// tempfile provides a temporary file, adopted from the example on [bbolt doc]
//
// [bbolt doc]: https://pkg.go.dev/go.etcd.io/bbolt#example-DB.Begin
func tempfile() (string, error) {
	f, err := os.CreateTemp("", "bolt-")
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Remove(f.Name()); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func (s *Svc) setupDb() error {
	dbpath := s.config.DbPath
	var err error
	if dbpath == "" {
		dbpath, err = tempfile()
		if err != nil {
			return err
		}
		s.tmpDbPath = dbpath
		slog.Warn("missing db path, use tmp path", "path", dbpath)
	}

	db, err := bbolt.Open(dbpath, 0o600, nil)
	if err != nil {
		return err
	}

	s.db = db

	return nil
}

func (s *Svc) closeDb() error {
	if s.db == nil {
		return nil
	}

	if s.tmpDbPath != "" {
		slog.Warn("missing db path, used tmp path", "path", s.tmpDbPath)
	}

	return s.db.Close()
}

// mustGetDb returns the database for the service, panics if the database is nil.
func (s *Svc) mustGetDb() *bbolt.DB {
	if s.db == nil {
		slog.Error("no db")
		panic(ErrNilDB)
	}

	return s.db
}

func (s *Svc) DeleteTmpDb() error {
	s.Close()
	if s.tmpDbPath == "" {
		return nil
	}
	return os.Remove(s.tmpDbPath)
}

const OPERATION_BUCKET = "operations"

func getOperationFromDb(
	db *bbolt.DB,
	id []byte,
) (*OperationRecord, error) {
	return getFromDb(
		db,
		[]byte(OPERATION_BUCKET),
		id,
		func(d []byte, v *OperationRecord) error {
			return json.Unmarshal(d, v)
		})
}

func putOperationToDb(
	db *bbolt.DB,
	r *OperationRecord,
) error {
	return putToDb(
		db,
		[]byte(OPERATION_BUCKET),
		[]byte(r.ID),
		r,
		func(v *OperationRecord) ([]byte, error) {
			return json.Marshal(v)
		})
}

// listOperationsFromDb loads every journal entry, newest first, optionally
// filtered by repo name. limit <= 0 means everything.
func listOperationsFromDb(db *bbolt.DB, repo string, limit int) ([]*OperationRecord, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	result := make([]*OperationRecord, 0)

	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(OPERATION_BUCKET))
		if b == nil {
			return nil
		}

		return b.ForEach(func(_ []byte, v []byte) error {
			r := &OperationRecord{}
			if err := json.Unmarshal(v, r); err != nil {
				return err
			}
			if repo != "" && r.Repo != repo {
				return nil
			}
			result = append(result, r)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sortOperations(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}
