package ledger

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"chainaudit/internal/audittrail/models"
)

// Memory is an in-process, hash-chained ledger for development and tests.
type Memory struct {
	mu     sync.RWMutex
	chains map[string][]Record
	codec  Codec
	now    func() time.Time
}

func NewMemory(codec Codec) *Memory {
	if codec == nil {
		codec = jsonCodec{}
	}
	return &Memory{
		chains: make(map[string][]Record),
		codec:  codec,
		now:    time.Now,
	}
}

func (m *Memory) AppendEntry(ctx context.Context, req models.AppendRequest) (models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return models.Entry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.chains[req.ChainID]
	prev := ""
	if n := len(records); n > 0 {
		prev = records[n-1].Hash
	}
	rec, err := seal(m.codec, req, prev, m.now())
	if err != nil {
		return models.Entry{}, err
	}
	m.chains[req.ChainID] = append(records, rec)
	return rec.Entry(), nil
}

// Records returns a copy of the records appended to chainID, oldest first.
func (m *Memory) Records(chainID string) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Record(nil), m.chains[chainID]...)
}

// Content decodes the content of rec with the ledger's codec.
func (m *Memory) Content(rec Record) (models.EntryContent, error) {
	var content models.EntryContent
	err := m.codec.Unmarshal(rec.Content, &content)
	return content, err
}

// Verify checks every chain concurrently.
func (m *Memory) Verify(ctx context.Context) error {
	m.mu.RLock()
	snapshot := make(map[string][]Record, len(m.chains))
	for id, records := range m.chains {
		snapshot[id] = append([]Record(nil), records...)
	}
	m.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, records := range snapshot {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return verifyChain(records)
		})
	}
	return g.Wait()
}
