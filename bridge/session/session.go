// Package session holds per-user conversation state for the bridge flow.
// The session is a typed entity, not a generic key/value bag: the flow step is
// a first-class enum and every field the flow collects has its own slot.
package session

import "sync"

// State identifies the current step of the bridge conversation.
type State string

const (
	// StateIdle indicates there is no active bridge flow for the user.
	StateIdle State = "idle"
	// StateChoosingDirection waits for the from-XMR / to-XMR choice.
	StateChoosingDirection State = "choosing_direction"
	// StateChoosingChain waits for the counterpart chain/token choice.
	StateChoosingChain State = "choosing_chain"
	// StateEnteringAmount waits for a positive amount (preset or typed).
	StateEnteringAmount State = "entering_amount"
	// StateEnteringAddress waits for the destination address.
	StateEnteringAddress State = "entering_address"
	// StateConfirming waits for the final confirm/cancel decision.
	StateConfirming State = "confirming"
)

// Direction tells which side of the bridge XMR anchors.
type Direction string

const (
	// DirectionFromXMR means the user sends XMR and receives the other asset.
	DirectionFromXMR Direction = "from_xmr"
	// DirectionToXMR means the user sends the other asset and receives XMR.
	DirectionToXMR Direction = "to_xmr"
)

// DefaultSlippage is the slippage tolerance percentage applied until the user
// picks another value in /settings.
const DefaultSlippage = 0.5

// Session is one user's conversation state. At most one exists per user.
// It is mutated exclusively through Store methods.
type Session struct {
	State              State
	Direction          Direction
	FromCurrency       string
	ToCurrency         string
	Amount             float64
	DestinationAddress string
	Slippage           float64
}

func newSession() *Session {
	return &Session{State: StateIdle, Slippage: DefaultSlippage}
}

// Store owns all sessions and the per-user locks that serialize update
// handling. Session access is internally synchronized; the per-user lock is a
// separate, coarser mechanism that handlers hold across a whole transition.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// userLock returns the serialization mutex for a user, creating it lazily.
func (s *Store) userLock(userID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Serialize acquires the per-user lock and returns the release function.
// Handlers hold it for the duration of one update so that no transition
// observes a session mutated mid-flight by a concurrent event for the same
// user. Different users proceed independently.
func (s *Store) Serialize(userID int64) func() {
	l := s.userLock(userID)
	l.Lock()
	return l.Unlock
}

// Get returns a copy of the user's session, or a fresh idle session if none
// exists yet. The copy cannot be used to mutate stored state.
func (s *Store) Get(userID int64) Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		return *sess
	}
	return *newSession()
}

// Update applies fn to the user's session, creating it lazily.
func (s *Store) Update(userID int64, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = newSession()
		s.sessions[userID] = sess
	}
	fn(sess)
}

// State returns the user's current flow step.
func (s *Store) State(userID int64) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.State
	}
	return StateIdle
}

// InProgress reports whether the user has an active bridge flow.
func (s *Store) InProgress(userID int64) bool {
	return s.State(userID) != StateIdle
}

// StartFlow discards any in-flight flow data and enters the first step.
// Slippage survives: it belongs to the session, not to one flow instance.
func (s *Store) StartFlow(userID int64) {
	s.Update(userID, func(sess *Session) {
		resetFlow(sess)
		sess.State = StateChoosingDirection
	})
}

// ResetFlow clears all flow data and returns the session to idle. Calling it
// repeatedly from any state is safe and always converges to the same result.
func (s *Store) ResetFlow(userID int64) {
	s.Update(userID, func(sess *Session) {
		resetFlow(sess)
	})
}

func resetFlow(sess *Session) {
	sess.State = StateIdle
	sess.Direction = ""
	sess.FromCurrency = ""
	sess.ToCurrency = ""
	sess.Amount = 0
	sess.DestinationAddress = ""
}

// Slippage returns the user's slippage tolerance percentage.
func (s *Store) Slippage(userID int64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.Slippage
	}
	return DefaultSlippage
}

// SetSlippage stores the user's slippage tolerance percentage.
func (s *Store) SetSlippage(userID int64, pct float64) {
	s.Update(userID, func(sess *Session) {
		sess.Slippage = pct
	})
}
