package mcpgateway

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	// ErrAuthenticationMissing reports an initialization without any usable
	// upstream credential.
	ErrAuthenticationMissing = errors.New("mcpgateway: authentication required")
	// ErrSessionNotFound reports a message for a session the registry does
	// not hold.
	ErrSessionNotFound = errors.New("mcpgateway: no session")
)

// Session binds one logical MCP client to its upstream credential and to the
// per-session mcp.Server that serves it.
type Session struct {
	ID        string
	CreatedAt time.Time

	server *mcp.Server

	mu         sync.RWMutex
	credential string
	lastSeen   time.Time
	// streams counts open GET streams; a session with one is never idle.
	streams int
}

// Credential returns the credential currently bound to the session.
func (s *Session) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// LastSeen reports when the session last received a message.
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Server returns the mcp.Server bound to the session.
func (s *Session) Server() *mcp.Server { return s.server }

func (s *Session) setCredential(value string) {
	s.mu.Lock()
	s.credential = value
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
	s.mu.Unlock()
}

func (s *Session) streaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streams > 0
}

// connected reports whether any transport session is still attached.
func (s *Session) connected() bool {
	if s.server == nil {
		return false
	}
	for range s.server.Sessions() {
		return true
	}
	return false
}

func (s *Session) close() {
	if s.server == nil {
		return
	}
	for ss := range s.server.Sessions() {
		_ = ss.Close()
	}
}

// SessionRegistryOptions configure a SessionRegistry.
type SessionRegistryOptions struct {
	// NewID generates session identifiers. Defaults to random UUIDs.
	NewID func() string
	// Now is the registry clock. Defaults to time.Now.
	Now func() time.Time
}

// SessionRegistry is the lock-protected table of live sessions.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	newID func() string
	now   func() time.Time
}

// NewSessionRegistry builds an empty registry.
func NewSessionRegistry(opts *SessionRegistryOptions) *SessionRegistry {
	r := &SessionRegistry{
		sessions: make(map[string]*Session),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	if opts != nil {
		if opts.NewID != nil {
			r.newID = opts.NewID
		}
		if opts.Now != nil {
			r.now = opts.Now
		}
	}
	return r
}

// Create registers a new session bound to credential. bind builds the
// session's mcp.Server; it runs before the session becomes visible to Lookup
// and must not call back into the registry.
func (r *SessionRegistry) Create(credential string, bind func(*Session) *mcp.Server) (*Session, error) {
	if credential == "" {
		return nil, ErrAuthenticationMissing
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.newID()
	for r.takenLocked(id) {
		id = r.newID()
	}
	sess := &Session{
		ID:         id,
		CreatedAt:  now,
		credential: credential,
		lastSeen:   now,
	}
	if bind != nil {
		sess.server = bind(sess)
	}
	r.sessions[id] = sess
	return sess, nil
}

func (r *SessionRegistry) takenLocked(id string) bool {
	if id == "" {
		return true
	}
	_, ok := r.sessions[id]
	return ok
}

// Lookup returns the session registered under id.
func (r *SessionRegistry) Lookup(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	return sess, ok
}

// UpdateCredential replaces the credential of session id. It is a no-op when
// the session is absent or credential is empty.
func (r *SessionRegistry) UpdateCredential(id, credential string) bool {
	if credential == "" {
		return false
	}
	sess, ok := r.Lookup(id)
	if !ok {
		return false
	}
	sess.setCredential(credential)
	return true
}

// Touch marks session id as active now.
func (r *SessionRegistry) Touch(id string) {
	if sess, ok := r.Lookup(id); ok {
		sess.touch(r.now())
	}
}

// Evict removes session id and closes its transport sessions.
func (r *SessionRegistry) Evict(id string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		sess.close()
	}
	return ok
}

// HoldStream marks session id as serving an open stream until the returned
// release func runs. Release also counts as activity.
func (r *SessionRegistry) HoldStream(id string) (release func()) {
	sess, ok := r.Lookup(id)
	if !ok {
		return func() {}
	}
	sess.mu.Lock()
	sess.streams++
	sess.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			sess.mu.Lock()
			sess.streams--
			sess.mu.Unlock()
			sess.touch(r.now())
		})
	}
}

// SweepIdle evicts every session silent for longer than maxIdle and returns
// their ids in sorted order. Sessions holding an open stream are kept.
func (r *SessionRegistry) SweepIdle(maxIdle time.Duration) []string {
	if maxIdle <= 0 {
		return nil
	}
	cutoff := r.now().Add(-maxIdle)
	var stale []*Session
	r.mu.Lock()
	for id, sess := range r.sessions {
		if !sess.streaming() && sess.LastSeen().Before(cutoff) {
			stale = append(stale, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(stale))
	for _, sess := range stale {
		sess.close()
		ids = append(ids, sess.ID)
	}
	sort.Strings(ids)
	return ids
}

// Len reports the number of registered sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs lists registered session ids in sorted order.
func (r *SessionRegistry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// CloseAll evicts every session.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
	}
}
