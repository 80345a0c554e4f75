package store

import (
	"context"
	"hash/maphash"
	"sync"
	"time"

	"github.com/shandysiswandi/passcode/internal/otp/entity"
	"github.com/shandysiswandi/passcode/internal/pkg/instrument"
)

const memoryShardCount = 64

type memoryShard struct {
	mu    sync.RWMutex
	items map[string]entity.Challenge
}

type referenceShard struct {
	mu   sync.RWMutex
	refs map[string]string
}

// Memory keeps challenges in process. Contacts and references are spread
// over independent shards; a contact shard lock may be held while taking a
// reference shard lock, never the other way round.
type Memory struct {
	tracing
	seed     maphash.Seed
	contacts [memoryShardCount]memoryShard
	refs     [memoryShardCount]referenceShard
}

func NewMemory(ins instrument.Instrumentation) *Memory {
	m := &Memory{
		tracing: tracing{ins: ins, name: "otp.outbound.store.memory"},
		seed:    maphash.MakeSeed(),
	}
	for i := range memoryShardCount {
		m.contacts[i].items = make(map[string]entity.Challenge)
		m.refs[i].refs = make(map[string]string)
	}
	return m
}

func (m *Memory) contactShard(contact string) *memoryShard {
	return &m.contacts[maphash.String(m.seed, contact)%memoryShardCount]
}

func (m *Memory) refShard(ref string) *referenceShard {
	return &m.refs[maphash.String(m.seed, ref)%memoryShardCount]
}

func (m *Memory) Get(ctx context.Context, contact string) (_ entity.Challenge, err error) {
	_, span := m.startSpan(ctx, "Get")
	defer func() { m.endSpan(span, err) }()

	s := m.contactShard(contact)
	s.mu.RLock()
	c, ok := s.items[contact]
	s.mu.RUnlock()

	if !ok {
		return entity.Challenge{}, entity.ErrChallengeNotFound
	}
	return c, nil
}

func (m *Memory) GetByReference(ctx context.Context, reference string) (_ entity.Challenge, err error) {
	ctx, span := m.startSpan(ctx, "GetByReference")
	defer func() { m.endSpan(span, err) }()

	rs := m.refShard(reference)
	rs.mu.RLock()
	contact, ok := rs.refs[reference]
	rs.mu.RUnlock()

	if !ok {
		return entity.Challenge{}, entity.ErrChallengeNotFound
	}

	c, err := m.Get(ctx, contact)
	if err != nil {
		return entity.Challenge{}, err
	}
	if c.Reference != reference {
		return entity.Challenge{}, entity.ErrChallengeNotFound
	}

	return c, nil
}

func (m *Memory) Put(ctx context.Context, c entity.Challenge) (err error) {
	_, span := m.startSpan(ctx, "Put")
	defer func() { m.endSpan(span, err) }()

	s := m.contactShard(c.Contact)
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.items[c.Contact]; ok && prev.Reference != c.Reference {
		m.dropRef(prev.Reference, c.Contact)
	}
	s.items[c.Contact] = c

	rs := m.refShard(c.Reference)
	rs.mu.Lock()
	rs.refs[c.Reference] = c.Contact
	rs.mu.Unlock()

	return nil
}

func (m *Memory) Delete(ctx context.Context, contact string, id int64) (_ bool, err error) {
	_, span := m.startSpan(ctx, "Delete")
	defer func() { m.endSpan(span, err) }()

	s := m.contactShard(contact)
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.items[contact]
	if !ok || c.ID != id {
		return false, nil
	}

	delete(s.items, contact)
	m.dropRef(c.Reference, contact)

	return true, nil
}

func (m *Memory) ListExpired(ctx context.Context, now time.Time, limit int) (_ []entity.Challenge, err error) {
	_, span := m.startSpan(ctx, "ListExpired")
	defer func() { m.endSpan(span, err) }()

	var out []entity.Challenge
	for i := range m.contacts {
		s := &m.contacts[i]
		s.mu.RLock()
		for _, c := range s.items {
			if limit > 0 && len(out) >= limit {
				break
			}
			if c.IsExpired(now) {
				out = append(out, c)
			}
		}
		s.mu.RUnlock()

		if limit > 0 && len(out) >= limit {
			break
		}
	}

	return out, nil
}

// Len returns the number of live challenges.
func (m *Memory) Len() int {
	n := 0
	for i := range m.contacts {
		s := &m.contacts[i]
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

func (m *Memory) dropRef(ref, contact string) {
	rs := m.refShard(ref)
	rs.mu.Lock()
	if rs.refs[ref] == contact {
		delete(rs.refs, ref)
	}
	rs.mu.Unlock()
}
