package tradelog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/cbotrade/paperfloor/internal/domain"
)

const (
	DefaultDir   = "./wal/trades"
	segmentLimit = 100
	maxSegments  = 10

	tradeKeyPrefix = "trade_"
)

// WALStore persists executed trades in a WAL so the journal survives restarts.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed trade journal.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "trade_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init trade WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends an executed trade to the journal.
func (s *WALStore) Save(record domain.TradeRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("trade journal is not initialized")
	}
	if record.Pair == "" {
		return fmt.Errorf("trade record pair is required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal trade record")
	}

	key := fmt.Sprintf("%s%s", tradeKeyPrefix, record.Pair)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// RecordsAfter returns all trades written after the provided WAL index.
func (s *WALStore) RecordsAfter(index uint64) ([]domain.TradeLogRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("trade journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.TradeLogRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}

		if !strings.HasPrefix(key, tradeKeyPrefix) {
			continue
		}

		var record domain.TradeRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, errors.Wrap(err, "decode trade record")
		}
		records = append(records, domain.TradeLogRecord{
			Index:  idx,
			Record: record,
		})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("trade journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
