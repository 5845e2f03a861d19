// Package securestore is an encrypted key/value store on top of the
// metadata table. Every value is sealed with the crypto envelope before it
// is written, so scalar secrets never reach disk in the clear.
package securestore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/securebank/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/securebank/internal/dbx"
)

// Sealer seals and opens string values.
type Sealer interface {
	SealString(s string) ([]byte, error)
	OpenString(data []byte) (string, error)
}

type Store struct {
	db     dbx.DB
	sealer Sealer
}

func New(db dbx.DB, sealer Sealer) *Store {
	return &Store{db: db, sealer: sealer}
}

// Get returns the opened value and whether the key was present. A value
// that fails to open is a crypto error and is returned as such.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	return get(ctx, metadata.NewSQLiteRepository(s.db), s.sealer, key)
}

func (s *Store) Put(ctx context.Context, key, value string) error {
	return s.Update(ctx, func(w *Writer) error { return w.Put(key, value) })
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return metadata.NewSQLiteRepository(s.db).Delete(ctx, key)
}

// RemovePrefix deletes every key under prefix.
func (s *Store) RemovePrefix(ctx context.Context, prefix string) error {
	return metadata.NewSQLiteRepository(s.db).DeletePrefix(ctx, prefix)
}

// Update applies the writes made through w in a single transaction.
func (s *Store) Update(ctx context.Context, fn func(w *Writer) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(&Writer{ctx: ctx, repo: metadata.NewSQLiteRepository(tx), sealer: s.sealer})
	})
}

// View reads several keys through r.
func (s *Store) View(ctx context.Context, fn func(r *Reader) error) error {
	return fn(&Reader{ctx: ctx, repo: metadata.NewSQLiteRepository(s.db), sealer: s.sealer})
}

func get(ctx context.Context, repo metadata.Repository, sealer Sealer, key string) (string, bool, error) {
	raw, err := repo.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if raw == nil {
		return "", false, nil
	}
	v, err := sealer.OpenString(raw)
	if err != nil {
		return "", false, fmt.Errorf("open %s: %w", key, err)
	}
	return v, true, nil
}

// Writer stages sealed writes inside Store.Update.
type Writer struct {
	ctx    context.Context
	repo   metadata.Repository
	sealer Sealer
}

func (w *Writer) Put(key, value string) error {
	sealed, err := w.sealer.SealString(value)
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return w.repo.Set(w.ctx, key, sealed)
}

func (w *Writer) PutBool(key string, v bool) error { return w.Put(key, strconv.FormatBool(v)) }

func (w *Writer) PutInt(key string, v int) error { return w.Put(key, strconv.Itoa(v)) }

// PutTime stores t as Unix milliseconds; the zero time removes the key.
func (w *Writer) PutTime(key string, t time.Time) error {
	if t.IsZero() {
		return w.Remove(key)
	}
	return w.Put(key, strconv.FormatInt(t.UnixMilli(), 10))
}

func (w *Writer) Remove(key string) error { return w.repo.Delete(w.ctx, key) }

// Reader reads typed values; absent keys yield zero values.
type Reader struct {
	ctx    context.Context
	repo   metadata.Repository
	sealer Sealer
}

func (r *Reader) String(key string) (string, error) {
	v, _, err := get(r.ctx, r.repo, r.sealer, key)
	return v, err
}

func (r *Reader) Bool(key string) (bool, error) {
	v, ok, err := get(r.ctx, r.repo, r.sealer, key)
	if err != nil || !ok {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func (r *Reader) Int(key string) (int, error) {
	v, ok, err := get(r.ctx, r.repo, r.sealer, key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func (r *Reader) Time(key string) (time.Time, error) {
	v, ok, err := get(r.ctx, r.repo, r.sealer, key)
	if err != nil || !ok {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", key, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
