// Package boltstore persists ranked audit results in a local bolt
// file, keyed by (user, year). One result per key; writes overwrite.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boddenberg/keiri-audit-go/internal/domain"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("boltstore")

var resultsBucket = []byte("audit_results")

// Store implements port.ResultStore on boltdb.
type Store struct {
	db     *bolt.DB
	logger *zap.Logger
}

// Open opens (or creates) the bolt file and ensures the results
// bucket exists.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt file %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resultsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create results bucket")
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying bolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

func resultKey(userID string, year int) []byte {
	return []byte(fmt.Sprintf("%s|%d", userID, year))
}

// Get returns the stored result for (user, year) only when its date
// matches the given calendar date; any other stored date is a miss.
func (s *Store) Get(ctx context.Context, userID string, year int, date string) (*domain.AuditResult, error) {
	_, span := tracer.Start(ctx, "BoltStore.Get")
	defer span.End()

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(resultsBucket).Get(resultKey(userID, year)); v != nil {
			raw = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrStore{Op: "get", Err: err}
	}
	if raw == nil {
		return nil, nil
	}

	var result domain.AuditResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt row behaves like a miss; the caller recomputes and
		// overwrites it.
		s.logger.Warn("boltstore: dropping unreadable result",
			zap.String("user_id", userID),
			zap.Int("year", year),
			zap.Error(err),
		)
		return nil, nil
	}
	if result.Date != date {
		return nil, nil
	}

	normalizeLegacyComparators(&result)
	return &result, nil
}

// Put stores one ranked result, overwriting any previous run for the
// same (user, year). Last write wins.
func (s *Store) Put(ctx context.Context, result *domain.AuditResult) error {
	_, span := tracer.Start(ctx, "BoltStore.Put")
	defer span.End()

	raw, err := json.Marshal(result)
	if err != nil {
		return &domain.ErrStore{Op: "put", Err: err}
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).Put(resultKey(result.UserID, result.Year), raw)
	})
	if err != nil {
		return &domain.ErrStore{Op: "put", Err: errors.Wrap(err, "bolt update")}
	}
	return nil
}

// normalizeLegacyComparators clears the comparator triple on profiles
// where all three are literal zero at once. Older deployments
// serialized "no data" as zeroes; rows written by this version carry
// nulls from birth, so the signature can only come from legacy data.
func normalizeLegacyComparators(result *domain.AuditResult) {
	for i := range result.Profiles {
		p := &result.Profiles[i]
		if isZero(p.GrowthRate) && isZero(p.ZScore) && isZero(p.DiffRatio) {
			p.GrowthRate = nil
			p.ZScore = nil
			p.DiffRatio = nil
		}
	}
}

func isZero(f *float64) bool {
	return f != nil && *f == 0
}
