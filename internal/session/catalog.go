package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"docport/internal/domain"
)

var (
	bucketSessions = []byte("sessions")
	bucketDocs     = []byte("docs")
	bucketTexts    = []byte("texts")
)

// Catalog is the bbolt-backed record of sessions and their documents.
// Document metadata and extracted text live in separate buckets keyed by
// "<session id>/<checksum>", so listing stays cheap while text blobs load
// only on demand.
type Catalog struct {
	db *bbolt.DB
}

func OpenCatalog(path string) (*Catalog, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketSessions, bucketDocs, bucketTexts} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

type docRow struct {
	Checksum string    `json:"checksum"`
	Name     string    `json:"name"`
	Pages    int       `json:"pages"`
	AddedAt  time.Time `json:"added_at"`
}

func (c *Catalog) PutSession(s domain.Session) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(s)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSessions).Put([]byte(s.ID), data)
	})
}

func (c *Catalog) GetSession(id string) (domain.Session, error) {
	var s domain.Session
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
		}
		return json.Unmarshal(data, &s)
	})
	return s, err
}

// ListSessions returns all sessions, newest first.
func (c *Catalog) ListSessions() ([]domain.Session, error) {
	var sessions []domain.Session
	err := c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEach(func(k, v []byte) error {
			var s domain.Session
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			sessions = append(sessions, s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID > sessions[j].ID
		}
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// DeleteSession removes the session row and every document row and text
// blob belonging to it.
func (c *Catalog) DeleteSession(id string) error {
	prefix := []byte(id + "/")
	return c.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDocs, bucketTexts} {
			b := tx.Bucket(name)
			cur := b.Cursor()
			var stale [][]byte
			for k, _ := cur.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = cur.Next() {
				stale = append(stale, append([]byte(nil), k...))
			}
			for _, k := range stale {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}
		return tx.Bucket(bucketSessions).Delete([]byte(id))
	})
}

func (c *Catalog) PutDocument(sessionID string, doc domain.Document) error {
	key := []byte(sessionID + "/" + doc.Checksum)
	return c.db.Update(func(tx *bbolt.Tx) error {
		row := docRow{
			Checksum: doc.Checksum,
			Name:     doc.Name,
			Pages:    doc.Pages,
			AddedAt:  doc.AddedAt,
		}
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocs).Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(bucketTexts).Put(key, []byte(doc.Text))
	})
}

// GetDocument returns one document with its extracted text.
func (c *Catalog) GetDocument(sessionID, checksum string) (domain.Document, error) {
	key := []byte(sessionID + "/" + checksum)
	var doc domain.Document
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get(key)
		if data == nil {
			return fmt.Errorf("document %s in session %s: %w", checksum, sessionID, domain.ErrInvalidDocument)
		}
		var row docRow
		if err := json.Unmarshal(data, &row); err != nil {
			return err
		}
		doc = domain.Document{
			Checksum: row.Checksum,
			Name:     row.Name,
			Pages:    row.Pages,
			Text:     string(tx.Bucket(bucketTexts).Get(key)),
			AddedAt:  row.AddedAt,
		}
		return nil
	})
	return doc, err
}

// ListDocuments returns the session's documents with extracted text, in
// checksum order.
func (c *Catalog) ListDocuments(sessionID string) ([]domain.Document, error) {
	prefix := []byte(sessionID + "/")
	var docs []domain.Document
	err := c.db.View(func(tx *bbolt.Tx) error {
		texts := tx.Bucket(bucketTexts)
		cur := tx.Bucket(bucketDocs).Cursor()
		for k, v := cur.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = cur.Next() {
			var row docRow
			if err := json.Unmarshal(v, &row); err != nil {
				return err
			}
			docs = append(docs, domain.Document{
				Checksum: row.Checksum,
				Name:     row.Name,
				Pages:    row.Pages,
				Text:     string(texts.Get(k)),
				AddedAt:  row.AddedAt,
			})
		}
		return nil
	})
	return docs, err
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}
