// FILE: src/internal/credstore/bolt.go
package credstore

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"scramwisp/src/internal/scram"
)

const (
	metadataBucket    = "metadata"
	credentialsBucket = "credentials"
	versionKey        = "version"
	schemaVersion     = 0
)

// record is the persisted form of a credential.
type record struct {
	Salt       []byte `cbor:"1,keyasint"`
	Iterations int    `cbor:"2,keyasint"`
	StoredKey  []byte `cbor:"3,keyasint"`
	ServerKey  []byte `cbor:"4,keyasint"`
}

// BoltStore persists credentials in a bbolt database, one CBOR record per
// username.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt creates or loads the credential database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("credstore: failed to open %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(credentialsBucket)); err != nil {
			return err
		}

		if b := meta.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != schemaVersion {
				return fmt.Errorf("credstore: incompatible version: %v", b)
			}
			return nil
		}
		return meta.Put([]byte(versionKey), []byte{schemaVersion})
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Lookup(username string) (*scram.Credential, error) {
	var cred *scram.Credential
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(credentialsBucket)).Get([]byte(username))
		if raw == nil {
			return fmt.Errorf("credstore: %w: %q", scram.ErrUnknownUser, username)
		}

		var r record
		if err := cbor.Unmarshal(raw, &r); err != nil {
			return fmt.Errorf("credstore: corrupt record for %q: %w", username, err)
		}
		cred = &scram.Credential{
			Username:   username,
			Salt:       r.Salt,
			Iterations: r.Iterations,
			StoredKey:  r.StoredKey,
			ServerKey:  r.ServerKey,
		}
		return cred.Validate()
	})
	if err != nil {
		return nil, err
	}
	return cred, nil
}

func (s *BoltStore) Save(cred *scram.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("credstore: %w", err)
	}

	raw, err := cbor.Marshal(record{
		Salt:       cred.Salt,
		Iterations: cred.Iterations,
		StoredKey:  cred.StoredKey,
		ServerKey:  cred.ServerKey,
	})
	if err != nil {
		return fmt.Errorf("credstore: failed to encode %q: %w", cred.Username, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(credentialsBucket)).Put([]byte(cred.Username), raw)
	})
}

func (s *BoltStore) Remove(username string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(credentialsBucket))
		if bkt.Get([]byte(username)) == nil {
			return fmt.Errorf("credstore: %w: %q", scram.ErrUnknownUser, username)
		}
		return bkt.Delete([]byte(username))
	})
}

func (s *BoltStore) Usernames() []string {
	var names []string
	_ = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(credentialsBucket)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names
}

func (s *BoltStore) Close() error {
	return errors.Join(s.db.Sync(), s.db.Close())
}
