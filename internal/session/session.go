// Package session owns the mutable state of one questionnaire run: current
// position, the answer map, and completion status. All mutations go through
// the operations here; they are atomic with respect to each other.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a test run.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Session is the state of one user's run. One instance per session; no
// cross-session shared state.
type Session struct {
	mu        sync.Mutex
	id        string
	startedAt time.Time
	status    Status
	current   int
	answers   map[int]string
	total     int
}

// Snapshot is a read-only view passed to the interpreter. It never mutates
// the session.
type Snapshot struct {
	SessionID       string
	Status          Status
	CurrentQuestion int
	TotalQuestions  int
	AnsweredCount   int
	Progress        float64
}

// New creates an idle session over total questions.
func New(total int) *Session {
	return &Session{
		status:  StatusIdle,
		current: 1,
		answers: make(map[int]string),
		total:   total,
	}
}

// Start begins a fresh run: new session ID, start time, position 1, empty
// answer map.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = uuid.New().String()
	s.startedAt = time.Now()
	s.status = StatusInProgress
	s.current = 1
	s.answers = make(map[int]string)
}

// SetAnswer upserts the answer for questionNum. It does not move the current
// position. Status becomes completed exactly when every question is
// answered; once completed, further answer changes are rejected (Reset is
// the only way out of completed).
func (s *Session) SetAnswer(questionNum int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusIdle {
		return fmt.Errorf("session: no test in progress")
	}
	if s.status == StatusCompleted {
		return fmt.Errorf("session: test already completed")
	}
	if questionNum < 1 || questionNum > s.total {
		return fmt.Errorf("session: question %d out of range (1-%d)", questionNum, s.total)
	}
	s.answers[questionNum] = value
	s.recomputeStatus()
	return nil
}

// RemoveAnswer deletes the answer for questionNum if present; no-op
// otherwise. Same lifecycle guards as SetAnswer.
func (s *Session) RemoveAnswer(questionNum int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusIdle {
		return fmt.Errorf("session: no test in progress")
	}
	if s.status == StatusCompleted {
		return fmt.Errorf("session: test already completed")
	}
	delete(s.answers, questionNum)
	s.recomputeStatus()
	return nil
}

// recomputeStatus derives completed from the answer count. Callers hold the
// lock. Forced completion via CompleteTest is not undone here because the
// guards above keep mutations out once completed.
func (s *Session) recomputeStatus() {
	if len(s.answers) == s.total {
		s.status = StatusCompleted
	} else {
		s.status = StatusInProgress
	}
}

// NextQuestion advances one position, clamping at the last question.
// Returns the new position.
func (s *Session) NextQuestion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < s.total {
		s.current++
	}
	return s.current
}

// PreviousQuestion retreats one position, clamping at question 1.
// Returns the new position.
func (s *Session) PreviousQuestion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current > 1 {
		s.current--
	}
	return s.current
}

// GoToQuestion jumps to questionNum. Out-of-range targets are a rejected
// no-op: the position is left unchanged and an error is returned.
func (s *Session) GoToQuestion(questionNum int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if questionNum < 1 || questionNum > s.total {
		return fmt.Errorf("session: question %d out of range (1-%d)", questionNum, s.total)
	}
	s.current = questionNum
	return nil
}

// CompleteTest forces completed status regardless of answer count
// ("finish early").
func (s *Session) CompleteTest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusCompleted
}

// Reset returns the session to its pre-Start shape: idle, position 1, empty
// answers, cleared ID and start time.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	s.startedAt = time.Time{}
	s.status = StatusIdle
	s.current = 1
	s.answers = make(map[int]string)
}

// ID returns the session identifier ("" when idle).
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// StartedAt returns the start time (zero when idle).
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Current returns the current question number.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Total returns the question count.
func (s *Session) Total() int {
	return s.total
}

// AnsweredCount returns the number of answered questions.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// Progress returns the completion percentage in [0,100].
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.total == 0 {
		return 0
	}
	return float64(len(s.answers)) / float64(s.total) * 100
}

// IsCompleted reports whether the run is completed.
func (s *Session) IsCompleted() bool {
	return s.Status() == StatusCompleted
}

// CanGoNext reports whether the position can advance.
func (s *Session) CanGoNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current < s.total
}

// CanGoPrevious reports whether the position can retreat.
func (s *Session) CanGoPrevious() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current > 1
}

// Answer returns the recorded answer for questionNum, if any.
func (s *Session) Answer(questionNum int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.answers[questionNum]
	return v, ok
}

// Answers returns a copy of the answer map.
func (s *Session) Answers() map[int]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Snapshot captures the read-only view in one lock acquisition.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	progress := 0.0
	if s.total > 0 {
		progress = float64(len(s.answers)) / float64(s.total) * 100
	}
	return Snapshot{
		SessionID:       s.id,
		Status:          s.status,
		CurrentQuestion: s.current,
		TotalQuestions:  s.total,
		AnsweredCount:   len(s.answers),
		Progress:        progress,
	}
}
