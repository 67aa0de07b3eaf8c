package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"chainaudit/internal/audittrail/models"
	"chainaudit/pkg/platform/sentinel"
)

// Producer is the part of *kgo.Client the Kafka ledger uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Kafka appends sealed records to a topic keyed by chain id, so every entry
// of one chain lands on the same partition in append order. Heads live in
// memory and are rebuilt from the topic by RecoverHeads; run a single writer
// per chain.
type Kafka struct {
	producer Producer
	topic    string
	codec    Codec
	now      func() time.Time

	mu    sync.Mutex
	heads map[string]string
}

func NewKafka(producer Producer, topic string, codec Codec) *Kafka {
	if codec == nil {
		codec = jsonCodec{}
	}
	return &Kafka{
		producer: producer,
		topic:    topic,
		codec:    codec,
		now:      time.Now,
		heads:    make(map[string]string),
	}
}

func (k *Kafka) AppendEntry(ctx context.Context, req models.AppendRequest) (models.Entry, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	rec, err := seal(k.codec, req, k.heads[req.ChainID], k.now())
	if err != nil {
		return models.Entry{}, err
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return models.Entry{}, fmt.Errorf("marshal ledger record: %w", err)
	}

	results := k.producer.ProduceSync(ctx, &kgo.Record{
		Topic: k.topic,
		Key:   []byte(rec.ChainID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "entry_id", Value: []byte(rec.EntryID)},
			{Key: "encoding", Value: []byte(rec.Encoding)},
		},
	})
	if err := results.FirstErr(); err != nil {
		return models.Entry{}, fmt.Errorf("produce entry %s: %w: %w", rec.EntryID, sentinel.ErrUnavailable, err)
	}

	k.heads[rec.ChainID] = rec.Hash
	return rec.Entry(), nil
}

// Replayer streams every record value already written to a topic, in
// partition order.
type Replayer interface {
	Replay(ctx context.Context, topic string, fn func(value []byte) error) error
}

// RecoverHeads rebuilds the chain heads from the records already in the
// topic, so a restarted writer links onto the last entry of each chain. It
// returns the number of chains found.
func (k *Kafka) RecoverHeads(ctx context.Context, r Replayer) (int, error) {
	heads := make(map[string]string)
	err := r.Replay(ctx, k.topic, func(value []byte) error {
		rec, err := DecodeRecord(value)
		if err != nil {
			return err
		}
		if rec.ChainID == "" || rec.Hash == "" {
			return fmt.Errorf("%w: record %s has no chain id or hash", ErrTampered, rec.EntryID)
		}
		heads[rec.ChainID] = rec.Hash
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("recover chain heads from %s: %w", k.topic, err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for chainID, hash := range heads {
		k.heads[chainID] = hash
	}
	return len(heads), nil
}

// DecodeRecord parses a record value written by AppendEntry.
func DecodeRecord(value []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal ledger record: %w", err)
	}
	return rec, nil
}
