package chat

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// MaxNameLength is the longest display name accepted, in characters.
const MaxNameLength = 16

var (
	validate      = validator.New()
	nameLengthTag = "max=" + strconv.Itoa(MaxNameLength)
)

type member struct {
	conn Conn
	name string
}

// Registry maps joined connections to their display names. Names are unique
// under lowercase folding. Members are kept in join order.
type Registry struct {
	mu      sync.RWMutex
	members []member
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// ValidateName trims name and checks it is non-empty and at most
// MaxNameLength characters. It does not check uniqueness.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := validate.Var(trimmed, "required"); err != nil {
		return "", &NameError{Reason: ReasonEmpty, Name: trimmed}
	}
	if err := validate.Var(trimmed, nameLengthTag); err != nil {
		return "", &NameError{Reason: ReasonTooLong, Name: trimmed}
	}
	return trimmed, nil
}

// Register claims name for conn. The uniqueness check and the insert happen
// under one lock, so two concurrent joins cannot both win the same name.
// On failure the registry is left untouched.
func (r *Registry) Register(conn Conn, name string) error {
	trimmed, err := ValidateName(name)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isTakenLocked(trimmed) {
		return &NameError{Reason: ReasonTaken, Name: trimmed}
	}
	if _, _, found := r.findLocked(conn); found {
		return ErrAlreadyRegistered
	}
	r.members = append(r.members, member{conn: conn, name: trimmed})
	return nil
}

// Unregister removes conn and returns the name it held. Unknown connections
// are a no-op.
func (r *Registry) Unregister(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, idx, found := r.findLocked(conn)
	if !found {
		return "", false
	}
	r.members = slices.Delete(r.members, idx, idx+1)
	return m.name, true
}

// IsTaken reports whether any member holds name, ignoring case.
func (r *Registry) IsTaken(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isTakenLocked(strings.TrimSpace(name))
}

// Name returns the display name registered for conn.
func (r *Registry) Name(conn Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, _, found := r.findLocked(conn)
	return m.name, found
}

// Snapshot returns member names in join order. The slice is a copy.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.members, func(m member, _ int) string {
		return m.name
	})
}

// Count returns the number of members.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Registry) isTakenLocked(name string) bool {
	folded := strings.ToLower(name)
	return lo.ContainsBy(r.members, func(m member) bool {
		return strings.ToLower(m.name) == folded
	})
}

func (r *Registry) findLocked(conn Conn) (member, int, bool) {
	return lo.FindIndexOf(r.members, func(m member) bool {
		return m.conn == conn
	})
}
