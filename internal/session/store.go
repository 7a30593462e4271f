package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rumahku/server/internal/page"
)

var ErrNotFound = errors.New("session not found")

// Factory builds the composer of a new session
type Factory func() *page.Composer

type entry struct {
	composer *page.Composer
	lastSeen time.Time
}

// Store keeps one page composer per visitor and expires idle ones
type Store struct {
	factory Factory
	idleTTL time.Duration
	logger  *logrus.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewStore(factory Factory, idleTTL time.Duration, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		factory:  factory,
		idleTTL:  idleTTL,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
		stopChan: make(chan struct{}),
	}
}

// Create starts a new session and returns its id
func (s *Store) Create() (string, *page.Composer) {
	id := uuid.NewString()
	composer := s.factory()

	s.mu.Lock()
	s.sessions[id] = &entry{composer: composer, lastSeen: s.now()}
	s.mu.Unlock()

	s.logger.WithField("session", id).Debug("Created session")
	return id, composer
}

// Get returns the composer of id and marks the session as active
func (s *Store) Get(id string) (*page.Composer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = s.now()
	return e.composer, nil
}

// GetOrCreate returns the session for id, creating a fresh one when it is unknown
func (s *Store) GetOrCreate(id string) (string, *page.Composer) {
	if id != "" {
		if composer, err := s.Get(id); err == nil {
			return id, composer
		}
	}
	return s.Create()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes and removes sessions idle for longer than the TTL
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.idleTTL)

	var expired []*page.Composer
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.composer)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, composer := range expired {
		composer.Close()
	}
	if len(expired) > 0 {
		s.logger.WithField("expired", len(expired)).Info("Expired idle sessions")
	}
	return len(expired)
}

// Start runs the sweeper every interval until Stop
func (s *Store) Start(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Stop ends the sweeper and closes every session
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range sessions {
		e.composer.Close()
	}
}
