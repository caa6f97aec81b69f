package jobs

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("job not found")
	ErrAlreadyFinal  = errors.New("job already finished")
	ErrInvalidStatus = errors.New("invalid job status")
)

// Status is the lifecycle position of a background job.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Job is a snapshot of one background job.
type Job struct {
	ID        string    `json:"jobId"`
	Kind      string    `json:"kind"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store tracks job status by ID and pushes every change to subscribers.
// It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	subs    map[string]map[int]chan Job
	nextSub int

	now   func() time.Time
	newID func() string
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		jobs:  make(map[string]*Job),
		subs:  make(map[string]map[int]chan Job),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Create registers a new in-progress job of the given kind.
func (s *Store) Create(kind string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	j := &Job{
		ID:        kind + "_" + s.newID(),
		Kind:      kind,
		Status:    StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[j.ID] = j
	return *j
}

// Get returns a job by ID.
func (s *Store) Get(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *j, nil
}

// Latest returns the most recently created job of kind.
func (s *Store) Latest(kind string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Job
	for _, j := range s.jobs {
		if j.Kind != kind {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	if latest == nil {
		return Job{}, false
	}
	return *latest, true
}

// List returns every job of kind, newest first.
func (s *Store) List(kind string) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Job
	for _, j := range s.jobs {
		if kind == "" || j.Kind == kind {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}

// Update moves a job to status and notifies subscribers. Subscriptions end once
// the job reaches a terminal status.
func (s *Store) Update(id string, status Status, errMsg string) (Job, error) {
	switch status {
	case StatusInProgress, StatusComplete, StatusFailed:
	default:
		return Job{}, ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	if j.Status.Terminal() {
		return *j, ErrAlreadyFinal
	}
	j.Status = status
	j.Error = errMsg
	j.UpdatedAt = s.now().UTC()
	snap := *j

	for sid, ch := range s.subs[id] {
		push(ch, snap)
		if status.Terminal() {
			close(ch)
			delete(s.subs[id], sid)
		}
	}
	if status.Terminal() {
		delete(s.subs, id)
	}
	return snap, nil
}

// Subscribe returns a channel that receives the current job and every later
// change; a slow reader only sees the latest. The channel is closed after a
// terminal status or when cancel is called.
func (s *Store) Subscribe(id string) (<-chan Job, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	ch := make(chan Job, 1)
	ch <- *j
	if j.Status.Terminal() {
		close(ch)
		return ch, func() {}, nil
	}
	sid := s.nextSub
	s.nextSub++
	if s.subs[id] == nil {
		s.subs[id] = make(map[int]chan Job)
	}
	s.subs[id][sid] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id][sid]; ok {
			delete(s.subs[id], sid)
			close(c)
		}
	}, nil
}

// push replaces any unread value so the newest status is always delivered.
func push(ch chan Job, j Job) {
	select {
	case ch <- j:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- j
}
