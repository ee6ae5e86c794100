package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"arthneeti/internal/game"
)

// Memory keeps everything in process. It backs tests and the DB-less dev
// mode. Callers always get deep copies so nothing escapes the lock.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*game.Session
	records  map[string]game.GameRecord
	profiles map[string]*game.PlayerProfile
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*game.Session),
		records:  make(map[string]game.GameRecord),
		profiles: make(map[string]*game.PlayerProfile),
	}
}

func cloneSession(s *game.Session) *game.Session {
	raw, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	var out game.Session
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

func (m *Memory) Create(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, game.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (m *Memory) Update(ctx context.Context, id string, fn func(*game.Session) error) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, game.ErrSessionNotFound
	}
	work := cloneSession(s)
	if err := fn(work); err != nil {
		return nil, err
	}
	work.UpdatedAt = time.Now().UTC()
	m.sessions[id] = work
	return cloneSession(work), nil
}

func (m *Memory) RecordResult(ctx context.Context, rec game.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.SessionID]; exists {
		return nil
	}
	m.records[rec.SessionID] = rec

	prof, ok := m.profiles[rec.DisplayName]
	if !ok {
		prof = &game.PlayerProfile{}
		m.profiles[rec.DisplayName] = prof
	}
	prof.Absorb(rec)
	return nil
}

func (m *Memory) Profile(ctx context.Context, displayName string) (*game.PlayerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prof, ok := m.profiles[displayName]
	if !ok {
		return nil, game.ErrProfileNotFound
	}
	out := *prof
	out.Badges = append([]string(nil), prof.Badges...)
	return &out, nil
}

func (m *Memory) Leaderboard(ctx context.Context, limit int) ([]game.LeaderboardRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := make([]game.GameRecord, 0, len(m.records))
	for _, r := range m.records {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].EndedAt.Before(recs[j].EndedAt)
	})

	var out []game.LeaderboardRow
	for i, r := range recs {
		if i >= limit {
			break
		}
		out = append(out, game.LeaderboardRow{
			Rank:        int64(i + 1),
			DisplayName: r.DisplayName,
			NetWorth:    r.NetWorth,
			Score:       r.Score,
			Persona:     r.Persona,
			EndReason:   r.EndReason,
			Months:      r.Months,
		})
	}
	return out, nil
}

func (m *Memory) StaleSessions(ctx context.Context, idleFor time.Duration, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-idleFor)
	var ids []string
	for id, s := range m.sessions {
		if s.IsActive && s.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
