// Package roster keeps the list of known participants in an embedded
// BoltDB file next to the service.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "participants"

var (
	ErrNotFound      = errors.New("participant not found")
	ErrDuplicateName = errors.New("a participant with this name already exists")
)

// Store wraps a BoltDB database holding one JSON document per participant,
// keyed by ID.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) the roster file and its bucket.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create roster directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create roster bucket: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// List returns every participant ordered by name.
func (s *Store) List() ([]Participant, error) {
	items := []Participant{}

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var p Participant
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			items = append(items, p)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items, nil
}

func (s *Store) Get(id string) (*Participant, error) {
	var p Participant

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// nameTaken reports whether another participant already uses name.
func nameTaken(b *bolt.Bucket, id, name string) (bool, error) {
	taken := false
	err := b.ForEach(func(k, v []byte) error {
		if string(k) == id {
			return nil
		}
		var p Participant
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		if strings.EqualFold(p.Name, name) {
			taken = true
		}
		return nil
	})
	return taken, err
}

// Create persists p unless its ID is already stored, in which case the
// stored record is returned with created=false and nothing is written.
func (s *Store) Create(p *Participant) (*Participant, bool, error) {
	var result Participant
	created := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		if existing := b.Get([]byte(p.ID)); existing != nil {
			return json.Unmarshal(existing, &result)
		}

		taken, err := nameTaken(b, p.ID, p.Name)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateName
		}

		now := time.Now().UTC()
		p.CreatedAt = now
		p.UpdatedAt = now

		data, err := json.Marshal(p)
		if err != nil {
			return err
		}

		result = *p
		created = true
		return b.Put([]byte(p.ID), data)
	})
	if err != nil {
		return nil, false, err
	}

	return &result, created, nil
}

// Update applies change to the stored participant. The write is skipped
// when change leaves the record as it was.
func (s *Store) Update(id string, change func(*Participant)) (*Participant, bool, error) {
	var result Participant
	written := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		existingBytes := b.Get([]byte(id))
		if existingBytes == nil {
			return ErrNotFound
		}

		var existing Participant
		if err := json.Unmarshal(existingBytes, &existing); err != nil {
			return err
		}

		updated := existing
		change(&updated)
		if sameFields(existing, updated) {
			result = existing
			return nil
		}

		if !strings.EqualFold(existing.Name, updated.Name) {
			taken, err := nameTaken(b, id, updated.Name)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicateName
			}
		}

		updated.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(updated)
		if err != nil {
			return err
		}

		written = true
		result = updated
		return b.Put([]byte(id), data)
	})
	if err != nil {
		return nil, false, err
	}

	return &result, written, nil
}

func sameFields(a, b Participant) bool {
	if a.Name != b.Name || a.Color != b.Color {
		return false
	}
	if (a.Avatar == nil) != (b.Avatar == nil) {
		return false
	}
	return a.Avatar == nil || *a.Avatar == *b.Avatar
}

// Delete removes a participant. Deleting an unknown ID is a no-op.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(id))
	})
}
