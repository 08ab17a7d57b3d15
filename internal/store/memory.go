package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dojoflow/backend/internal/domain"
	"github.com/dojoflow/backend/internal/models"
)

// MemoryStore is a mutex-guarded in-memory implementation of every store
// interface in the service. It backs the unit tests and doubles as a dev
// backend; semantics match the Postgres/Mongo implementations, in particular
// the idempotence and orphan tolerance of the mirror push/pull primitives.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[string]*models.User
	techniques map[string]*models.Technique
	sequences  map[string]*models.Sequence
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      map[string]*models.User{},
		techniques: map[string]*models.Technique{},
		sequences:  map[string]*models.Sequence{},
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.TechniqueRefs = slices.Clone(u.TechniqueRefs)
	c.SequenceRefs = slices.Clone(u.SequenceRefs)
	return &c
}

func cloneTechnique(t *models.Technique) *models.Technique {
	c := *t
	c.SequenceRefs = slices.Clone(t.SequenceRefs)
	return &c
}

func cloneSequence(s *models.Sequence) *models.Sequence {
	c := *s
	c.TechniqueRefs = slices.Clone(s.TechniqueRefs)
	return &c
}

// pushRef appends ref unless already present; reports whether it changed.
func pushRef(refs []string, ref string) ([]string, bool) {
	if slices.Contains(refs, ref) {
		return refs, false
	}
	return append(refs, ref), true
}

// pullRef removes every occurrence of ref; reports whether it changed.
func pullRef(refs []string, ref string) ([]string, bool) {
	n := slices.DeleteFunc(slices.Clone(refs), func(r string) bool { return r == ref })
	return n, len(n) != len(refs)
}

// ── users ────────────────────────────────────────────────

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, domain.Duplicate("email %s already registered", u.Email)
		}
	}
	c := cloneUser(u)
	c.ID = uuid.NewString()
	if c.TechniqueRefs == nil {
		c.TechniqueRefs = []string{}
	}
	if c.SequenceRefs == nil {
		c.SequenceRefs = []string{}
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	m.users[c.ID] = c
	return cloneUser(c), nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.NotFound("user", id)
	}
	return cloneUser(u), nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.NotFound("user", email)
}

func (m *MemoryStore) GetUserByToken(_ context.Context, token string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token != "" {
		for _, u := range m.users {
			if u.Token == token {
				return cloneUser(u), nil
			}
		}
	}
	return nil, domain.NotFound("user", "by-token")
}

func (m *MemoryStore) FindUserByName(_ context.Context, userName string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UserName == userName {
			return cloneUser(u), nil
		}
	}
	return nil, domain.NotFound("user", userName)
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return domain.NotFound("user", u.ID)
	}
	c := cloneUser(u)
	c.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = c
	return nil
}

func (m *MemoryStore) PushUserTechnique(_ context.Context, userID, techniqueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.TechniqueRefs, _ = pushRef(u.TechniqueRefs, techniqueID)
	}
	return nil
}

func (m *MemoryStore) PullUserTechnique(_ context.Context, userID, techniqueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.TechniqueRefs, _ = pullRef(u.TechniqueRefs, techniqueID)
	}
	return nil
}

func (m *MemoryStore) PushUserSequence(_ context.Context, userID, sequenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.SequenceRefs, _ = pushRef(u.SequenceRefs, sequenceID)
	}
	return nil
}

func (m *MemoryStore) PullUserSequence(_ context.Context, userID, sequenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.SequenceRefs, _ = pullRef(u.SequenceRefs, sequenceID)
	}
	return nil
}

// ── techniques ───────────────────────────────────────────

func (m *MemoryStore) InsertTechnique(_ context.Context, t *models.Technique) (*models.Technique, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cloneTechnique(t)
	c.ID = uuid.NewString()
	c.SequenceRefs = []string{}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	m.techniques[c.ID] = c
	return cloneTechnique(c), nil
}

func (m *MemoryStore) GetTechnique(_ context.Context, id string) (*models.Technique, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.techniques[id]
	if !ok {
		return nil, domain.NotFound("technique", id)
	}
	return cloneTechnique(t), nil
}

func (m *MemoryStore) ListTechniques(_ context.Context) ([]models.Technique, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Technique, 0, len(m.techniques))
	for _, t := range m.techniques {
		out = append(out, *cloneTechnique(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveTechnique(_ context.Context, t *models.Technique) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.techniques[t.ID]
	if !ok {
		return domain.NotFound("technique", t.ID)
	}
	c := cloneTechnique(t)
	c.OwnerID = existing.OwnerID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	m.techniques[t.ID] = c
	return nil
}

func (m *MemoryStore) DeleteTechnique(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.techniques, id)
	return nil
}

func (m *MemoryStore) PushTechniqueSequence(_ context.Context, techniqueID, sequenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.techniques[techniqueID]; ok {
		t.SequenceRefs, _ = pushRef(t.SequenceRefs, sequenceID)
	}
	return nil
}

func (m *MemoryStore) PullTechniqueSequence(_ context.Context, techniqueID, sequenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.techniques[techniqueID]; ok {
		t.SequenceRefs, _ = pullRef(t.SequenceRefs, sequenceID)
	}
	return nil
}

// ── sequences ────────────────────────────────────────────

func (m *MemoryStore) InsertSequence(_ context.Context, s *models.Sequence) (*models.Sequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cloneSequence(s)
	c.ID = uuid.NewString()
	if c.TechniqueRefs == nil {
		c.TechniqueRefs = []string{}
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	m.sequences[c.ID] = c
	return cloneSequence(c), nil
}

func (m *MemoryStore) GetSequence(_ context.Context, id string) (*models.Sequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sequences[id]
	if !ok {
		return nil, domain.NotFound("sequence", id)
	}
	return cloneSequence(s), nil
}

func (m *MemoryStore) ListSequences(_ context.Context) ([]models.Sequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Sequence, 0, len(m.sequences))
	for _, s := range m.sequences {
		out = append(out, *cloneSequence(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveSequence(_ context.Context, s *models.Sequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sequences[s.ID]
	if !ok {
		return domain.NotFound("sequence", s.ID)
	}
	c := cloneSequence(s)
	c.OwnerID = existing.OwnerID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	m.sequences[s.ID] = c
	return nil
}

func (m *MemoryStore) DeleteSequence(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sequences, id)
	return nil
}

func (m *MemoryStore) PullSequenceTechnique(_ context.Context, sequenceID, techniqueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sequences[sequenceID]; ok {
		s.TechniqueRefs, _ = pullRef(s.TechniqueRefs, techniqueID)
	}
	return nil
}
