package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/claimdesk/internal/core/assignment"
	"github.com/example/claimdesk/internal/core/escalation"
	"github.com/example/claimdesk/internal/core/notification"
	"github.com/example/claimdesk/internal/ports/secondary"
)

var fixedTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// ============================================================================
// Repositories
// ============================================================================

var _ secondary.EscalationRepository = (*mockEscalationRepository)(nil)

// mockEscalationRepository implements secondary.EscalationRepository for testing.
type mockEscalationRepository struct {
	records map[string]*secondary.EscalationRecord
	history map[string][]*secondary.EscalationHistoryRecord
	saveErr error
	saves   int
}

func newMockEscalationRepository() *mockEscalationRepository {
	return &mockEscalationRepository{
		records: make(map[string]*secondary.EscalationRecord),
		history: make(map[string][]*secondary.EscalationHistoryRecord),
	}
}

func (m *mockEscalationRepository) GetByClaim(ctx context.Context, claimID string) (*secondary.EscalationRecord, error) {
	r, ok := m.records[claimID]
	if !ok {
		return nil, fmt.Errorf("escalation for claim %s: %w", claimID, secondary.ErrNotFound)
	}
	c := *r
	return &c, nil
}

func (m *mockEscalationRepository) GetHistory(ctx context.Context, claimID string) ([]*secondary.EscalationHistoryRecord, error) {
	return m.history[claimID], nil
}

func (m *mockEscalationRepository) Save(ctx context.Context, rec *secondary.EscalationRecord, history []*secondary.EscalationHistoryRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	c := *rec
	if prior, ok := m.records[rec.ClaimID]; ok {
		c.CreatedAt = prior.CreatedAt
	}
	m.records[rec.ClaimID] = &c
	stored := m.history[rec.ClaimID]
	for _, h := range history[len(stored):] {
		hc := *h
		m.history[rec.ClaimID] = append(m.history[rec.ClaimID], &hc)
	}
	return nil
}

func (m *mockEscalationRepository) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	var result []*secondary.EscalationRecord
	for _, r := range m.records {
		if filters.Status != "" && r.Status != filters.Status {
			continue
		}
		if filters.Level != 0 && r.CurrentLevel != filters.Level {
			continue
		}
		if filters.AssignedAgent != "" && r.AssignedAgent != filters.AssignedAgent {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClaimID < result[j].ClaimID })
	return result, nil
}

func (m *mockEscalationRepository) ListExpired(ctx context.Context, now time.Time) ([]*secondary.EscalationRecord, error) {
	cutoff := secondary.FormatTime(now)
	var result []*secondary.EscalationRecord
	for _, r := range m.records {
		if (r.Status == "pending" || r.Status == "escalated") && r.ConfirmationDeadline != "" && r.ConfirmationDeadline < cutoff {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClaimID < result[j].ClaimID })
	return result, nil
}

func (m *mockEscalationRepository) CountOpenByAgent(ctx context.Context, agentIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(agentIDs))
	for _, id := range agentIDs {
		counts[id] = 0
	}
	for _, r := range m.records {
		if r.Status == "resolved" {
			continue
		}
		if _, ok := counts[r.AssignedAgent]; ok {
			counts[r.AssignedAgent]++
		}
	}
	return counts, nil
}

var _ secondary.ClaimRepository = (*mockClaimRepository)(nil)

// mockClaimRepository implements secondary.ClaimRepository for testing.
type mockClaimRepository struct {
	claims map[string]*secondary.ClaimRecord
	getErr error
}

func newMockClaimRepository() *mockClaimRepository {
	return &mockClaimRepository{claims: make(map[string]*secondary.ClaimRecord)}
}

func (m *mockClaimRepository) Create(ctx context.Context, claim *secondary.ClaimRecord) error {
	if _, ok := m.claims[claim.ID]; ok {
		return errors.New("claim already exists")
	}
	m.claims[claim.ID] = claim
	return nil
}

func (m *mockClaimRepository) GetByID(ctx context.Context, id string) (*secondary.ClaimRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %s: %w", id, secondary.ErrNotFound)
	}
	return c, nil
}

func (m *mockClaimRepository) UpdateFraudScore(ctx context.Context, id string, score float64) error {
	c, ok := m.claims[id]
	if !ok {
		return fmt.Errorf("claim %s: %w", id, secondary.ErrNotFound)
	}
	c.FraudScore = &score
	return nil
}

func (m *mockClaimRepository) List(ctx context.Context, filters secondary.ClaimFilters) ([]*secondary.ClaimRecord, error) {
	var result []*secondary.ClaimRecord
	for _, c := range m.claims {
		if filters.UserID != "" && c.UserID != filters.UserID {
			continue
		}
		if filters.Type != "" && c.Type != filters.Type {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ============================================================================
// Queue
// ============================================================================

var _ secondary.JobQueue = (*memoryQueue)(nil)

// memoryQueue implements secondary.JobQueue in memory and records every add.
type memoryQueue struct {
	name   string
	clock  *fakeClock
	mu     sync.Mutex
	jobs   map[string]*secondary.Job
	order  []string
	nextID int
	addErr error
}

func newMemoryQueue(name string, clock *fakeClock) *memoryQueue {
	return &memoryQueue{name: name, clock: clock, jobs: make(map[string]*secondary.Job)}
}

func (q *memoryQueue) Name() string { return q.name }

func (q *memoryQueue) Add(ctx context.Context, jobType string, payload secondary.JobPayload, opts secondary.AddOptions) (*secondary.Job, error) {
	if q.addErr != nil {
		return nil, q.addErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	id := opts.JobID
	if id == "" {
		q.nextID++
		id = fmt.Sprintf("job-%d", q.nextID)
	}
	if existing, ok := q.jobs[id]; ok {
		return existing, nil
	}

	state := secondary.JobStateWaiting
	if opts.Delay > 0 {
		state = secondary.JobStateDelayed
	}
	priority := opts.Priority
	if priority == "" {
		priority = secondary.PriorityMedium
	}
	job := &secondary.Job{
		ID:        id,
		Queue:     q.name,
		Type:      jobType,
		ClaimID:   payload.ClaimID,
		Data:      payload.Data,
		Priority:  priority,
		State:     state,
		CreatedAt: q.clock.now(),
		ProcessAt: q.clock.now().Add(opts.Delay),
	}
	q.jobs[id] = job
	q.order = append(q.order, id)
	return job, nil
}

func (q *memoryQueue) Remove(ctx context.Context, jobID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok || (job.State != secondary.JobStateWaiting && job.State != secondary.JobStateDelayed) {
		return false, nil
	}
	delete(q.jobs, jobID)
	for i, id := range q.order {
		if id == jobID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (q *memoryQueue) GetJob(ctx context.Context, jobID string) (*secondary.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, secondary.ErrNotFound)
	}
	return job, nil
}

func (q *memoryQueue) Stats(ctx context.Context) (secondary.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var st secondary.QueueStats
	for _, j := range q.jobs {
		switch j.State {
		case secondary.JobStateWaiting:
			st.Waiting++
		case secondary.JobStateDelayed:
			st.Delayed++
		case secondary.JobStateActive:
			st.Active++
		case secondary.JobStateCompleted:
			st.Completed++
		case secondary.JobStateFailed:
			st.Failed++
		}
	}
	return st, nil
}

// ofType returns the jobs of one type in insertion order.
func (q *memoryQueue) ofType(jobType string) []*secondary.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*secondary.Job
	for _, id := range q.order {
		if j := q.jobs[id]; j.Type == jobType {
			out = append(out, j)
		}
	}
	return out
}

func (q *memoryQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// ============================================================================
// Messaging
// ============================================================================

var _ secondary.MessagingProvider = (*mockProvider)(nil)

type sentMessage struct {
	to, body string
}

// mockProvider implements secondary.MessagingProvider for testing.
type mockProvider struct {
	sent    []sentMessage
	sendErr error
	reject  string
}

func (p *mockProvider) Name() string { return "mock" }

func (p *mockProvider) Send(ctx context.Context, recipient, message string) (*secondary.SendResult, error) {
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	if p.reject != "" {
		return &secondary.SendResult{Success: false, Error: p.reject}, nil
	}
	p.sent = append(p.sent, sentMessage{to: recipient, body: message})
	return &secondary.SendResult{Success: true, MessageID: fmt.Sprintf("MSG-%d", len(p.sent))}, nil
}

var _ secondary.AgentDirectory = (*mockDirectory)(nil)

// mockDirectory implements secondary.AgentDirectory for testing.
type mockDirectory struct {
	agents     map[string]secondary.Contact
	management []secondary.Contact
}

func (d *mockDirectory) Lookup(agentID string) (secondary.Contact, bool) {
	c, ok := d.agents[agentID]
	return c, ok
}

func (d *mockDirectory) Management() []secondary.Contact { return d.management }

// ============================================================================
// Conversations
// ============================================================================

var _ secondary.ConversationStore = (*mockConversationStore)(nil)

// mockConversationStore implements secondary.ConversationStore for testing.
type mockConversationStore struct {
	conversations map[string]*secondary.Conversation
	saveErr       error
	saves         int
	touches       int
}

func newMockConversationStore() *mockConversationStore {
	return &mockConversationStore{conversations: make(map[string]*secondary.Conversation)}
}

func (m *mockConversationStore) Get(ctx context.Context, userID string) (*secondary.Conversation, error) {
	c, ok := m.conversations[userID]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", userID, secondary.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *mockConversationStore) Save(ctx context.Context, conv *secondary.Conversation) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	cp := *conv
	m.conversations[conv.UserID] = &cp
	return nil
}

func (m *mockConversationStore) Touch(ctx context.Context, userID string) error {
	if _, ok := m.conversations[userID]; !ok {
		return secondary.ErrNotFound
	}
	m.touches++
	return nil
}

func (m *mockConversationStore) Delete(ctx context.Context, userID string) error {
	delete(m.conversations, userID)
	return nil
}

// ============================================================================
// Harness
// ============================================================================

type escalationHarness struct {
	service *EscalationServiceImpl
	repo    *mockEscalationRepository
	claims  *mockClaimRepository
	escQ    *memoryQueue
	notifQ  *memoryQueue
	clock   *fakeClock
}

func testPools() map[int][]string {
	return map[int][]string{
		2: {"agent-a", "agent-b"},
		3: {"senior-a"},
		4: {"specialist-a"},
	}
}

func newEscalationHarness(t *testing.T) *escalationHarness {
	t.Helper()
	clock := &fakeClock{t: fixedTime}
	escQ := newMemoryQueue(escalation.QueueEscalations, clock)
	notifQ := newMemoryQueue(notification.QueueNotifications, clock)
	repo := newMockEscalationRepository()
	claims := newMockClaimRepository()
	logger := zap.NewNop()

	executor := NewEffectExecutorWithClock(logger, clock.now, escQ, notifQ)
	service := NewEscalationServiceWithClock(repo, claims, escQ, executor, EscalationPolicy{
		Levels:   escalation.DefaultLevelTable(),
		Pools:    testPools(),
		Strategy: assignment.NewRoundRobin(),
	}, logger, clock.now)

	return &escalationHarness{
		service: service,
		repo:    repo,
		claims:  claims,
		escQ:    escQ,
		notifQ:  notifQ,
		clock:   clock,
	}
}

func ptr[T any](v T) *T { return &v }
