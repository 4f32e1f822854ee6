package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/turnstile"
	"github.com/xraph/turnstile/holding"
	"github.com/xraph/turnstile/id"
	"github.com/xraph/turnstile/policy"
	"github.com/xraph/turnstile/record"
)

type faceKey struct {
	col      string
	unitType uint64
}

type holdingKey struct {
	col      string
	holder   string
	unitType uint64
}

type Store struct {
	mu sync.RWMutex

	// Collection storage
	collections map[string]*policy.Collection

	// Policy storage, keyed by collection ID
	policies map[string]*policy.Policy

	// Face value storage
	faceValues map[faceKey]int64

	// Holding state storage
	holdings map[holdingKey]*holding.State

	// Append-only records
	fees     map[string][]*record.Fee
	checkIns map[string][]*record.CheckIn

	closed bool
}

func New() *Store {
	return &Store{
		collections: make(map[string]*policy.Collection),
		policies:    make(map[string]*policy.Policy),
		faceValues:  make(map[faceKey]int64),
		holdings:    make(map[holdingKey]*holding.State),
		fees:        make(map[string][]*record.Fee),
		checkIns:    make(map[string][]*record.CheckIn),
	}
}

// Collection methods

func (s *Store) CreateCollection(_ context.Context, c *policy.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[c.ID.String()]; exists {
		return turnstile.ErrAlreadyExists
	}
	s.collections[c.ID.String()] = c
	return nil
}

func (s *Store) GetCollection(_ context.Context, colID id.CollectionID) (*policy.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.collections[colID.String()]; ok {
		return c, nil
	}
	return nil, turnstile.ErrCollectionNotFound
}

func (s *Store) UpdateCollection(_ context.Context, c *policy.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[c.ID.String()]; !exists {
		return turnstile.ErrCollectionNotFound
	}
	s.collections[c.ID.String()] = c
	return nil
}

func (s *Store) ListCollections(_ context.Context, owner string) ([]*policy.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*policy.Collection, 0)
	for _, c := range s.collections {
		if owner == "" || c.Owner == owner {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Policy methods

func (s *Store) SetPolicy(_ context.Context, colID id.CollectionID, p *policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[colID.String()]; !exists {
		return turnstile.ErrCollectionNotFound
	}
	s.policies[colID.String()] = p
	return nil
}

func (s *Store) GetPolicy(_ context.Context, colID id.CollectionID) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.policies[colID.String()]; ok {
		return p, nil
	}
	return nil, turnstile.ErrPolicyNotSet
}

// Face value methods

func (s *Store) SetFaceValue(_ context.Context, colID id.CollectionID, unitTypeID uint64, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[colID.String()]; !exists {
		return turnstile.ErrCollectionNotFound
	}
	s.faceValues[faceKey{col: colID.String(), unitType: unitTypeID}] = price
	return nil
}

func (s *Store) GetFaceValue(_ context.Context, colID id.CollectionID, unitTypeID uint64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if price, ok := s.faceValues[faceKey{col: colID.String(), unitType: unitTypeID}]; ok {
		return price, nil
	}
	return 0, turnstile.ErrFaceValueNotSet
}

// Holding state methods

func (s *Store) GetHolding(_ context.Context, colID id.CollectionID, holder string, unitTypeID uint64) (*holding.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := holdingKey{col: colID.String(), holder: holder, unitType: unitTypeID}
	if h, ok := s.holdings[key]; ok {
		return h, nil
	}
	return nil, turnstile.ErrNotFound
}

func (s *Store) PutHolding(_ context.Context, colID id.CollectionID, h *holding.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := holdingKey{col: colID.String(), holder: h.Holder, unitType: h.UnitTypeID}
	s.holdings[key] = h
	return nil
}

// Record methods

func (s *Store) AppendFee(_ context.Context, f *record.Fee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := f.Collection.String()
	s.fees[key] = append(s.fees[key], f)
	return nil
}

func (s *Store) ListFees(_ context.Context, colID id.CollectionID, opts record.ListOpts) ([]*record.Fee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*record.Fee, 0)
	for _, f := range s.fees[colID.String()] {
		if opts.UnitTypeID != nil && f.UnitTypeID != *opts.UnitTypeID {
			continue
		}
		result = append(result, f)
	}
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) AppendCheckIn(_ context.Context, c *record.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := c.Collection.String()
	s.checkIns[key] = append(s.checkIns[key], c)
	return nil
}

func (s *Store) ListCheckIns(_ context.Context, colID id.CollectionID, opts record.ListOpts) ([]*record.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*record.CheckIn, 0)
	for _, c := range s.checkIns[colID.String()] {
		if opts.UnitTypeID != nil && c.UnitTypeID != *opts.UnitTypeID {
			continue
		}
		result = append(result, c)
	}
	return paginate(result, opts.Offset, opts.Limit), nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return turnstile.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func paginate[T any](in []T, offset, limit int) []T {
	start := offset
	if start > len(in) {
		start = len(in)
	}
	end := start + limit
	if limit == 0 || end > len(in) {
		end = len(in)
	}
	return in[start:end]
}
