package generation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"server/internal/infra"
	"server/internal/providers/kling"
)

// TaskCreator submits one video generation job and returns the created task.
type TaskCreator interface {
	CreateTask(ctx context.Context, req kling.CreateTaskRequest) (*kling.TaskInfo, error)
}

// Session tracks one user action from submission to terminal state. It owns
// the cancellation of its own poll loop and the UI-visible status text.
type Session struct {
	ID     string
	TaskID string

	mu         sync.Mutex
	task       Task
	statusText string
	locale     string

	cancel context.CancelFunc
	done   chan struct{}
}

// Snapshot is the caller-facing view of a session at one point in time.
type Snapshot struct {
	ID             string `json:"session_id"`
	TaskID         string `json:"task_id"`
	State          State  `json:"state"`
	ProviderStatus string `json:"provider_status,omitempty"`
	VideoURL       string `json:"video_url,omitempty"`
	Reason         string `json:"reason,omitempty"`
	StatusText     string `json:"status_text"`
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:             s.ID,
		TaskID:         s.TaskID,
		State:          s.task.State,
		ProviderStatus: s.task.ProviderStatus,
		VideoURL:       s.task.VideoURL,
		Reason:         s.task.Reason,
		StatusText:     s.statusText,
	}
}

// Cancel stops the session's poll loop. Cancelling an already-terminal
// session is a no-op. The provider-side job is not cancelled; providers in
// this domain do not expose cancellation.
func (s *Session) Cancel() {
	s.cancel()
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) update(task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task = task
	s.statusText = statusText(s.locale, task)
}

// Manager starts sessions and keeps the in-memory registry of those still
// of interest to the UI. Each session polls independently; there is no
// shared mutable state between tasks.
type Manager struct {
	creator TaskCreator
	poller  *Poller
	logger  infra.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(creator TaskCreator, poller *Poller, logger infra.Logger) *Manager {
	return &Manager{
		creator:  creator,
		poller:   poller,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Start submits the job and, on success, begins tracking it. Submission
// failure leaves no session and no polling loop behind.
func (m *Manager) Start(ctx context.Context, req kling.CreateTaskRequest, locale string) (*Session, error) {
	info, err := m.creator.CreateTask(ctx, req)
	if err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	session := &Session{
		ID:     uuid.NewString(),
		TaskID: info.TaskID,
		locale: locale,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	session.update(Task{ID: info.TaskID, State: StatePending, ProviderStatus: info.Status})

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	go func() {
		defer close(session.done)
		final := m.poller.Poll(pollCtx, session.TaskID, session.update)
		m.logger.Info().
			Str("session_id", session.ID).
			Str("task_id", session.TaskID).
			Str("state", string(final.State)).
			Msg("generation: session finished")
	}()

	return session, nil
}

// Get returns the session with the given id, if it is tracked.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Cancel aborts the session's polling loop and reports whether the session
// existed.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.Cancel()
	return true
}

func statusText(locale string, task Task) string {
	id := locale == "id"
	switch task.State {
	case StatePending:
		if id {
			return "Menunggu penyedia memulai"
		}
		return "Waiting for the provider to start"
	case StateInProgress:
		if id {
			return fmt.Sprintf("Sedang membuat video (%s)", task.ProviderStatus)
		}
		return fmt.Sprintf("Generating video (%s)", task.ProviderStatus)
	case StateCompleted:
		if id {
			return "Video selesai"
		}
		return "Video ready"
	case StateFailed:
		if id {
			return fmt.Sprintf("Pembuatan video gagal: %s", task.Reason)
		}
		return fmt.Sprintf("Generation failed: %s", task.Reason)
	case StateCancelled:
		if id {
			return "Dibatalkan"
		}
		return "Cancelled"
	}
	return string(task.State)
}
