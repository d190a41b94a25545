package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	identity     Identity
	passwordHash []byte
}

// MemoryProvider is a complete in-process Provider for tests and local
// development. Passwords are bcrypt-hashed; identity IDs are random UUIDs.
//
// Handlers run synchronously on the caller's goroutine after each state
// change, which makes the provider's event timeline deterministic in tests.
type MemoryProvider struct {
	mu           sync.Mutex
	byEmail      map[string]*account
	byID         map[string]*account
	current      *Identity
	listeners    map[int]Handler
	nextListener int
	bcryptCost   int
}

// MemoryProviderOption configures a MemoryProvider during construction.
type MemoryProviderOption func(*MemoryProvider)

// WithBcryptCost sets the bcrypt cost for password hashing. Tests usually
// pass bcrypt.MinCost to keep sign-up fast.
func WithBcryptCost(cost int) MemoryProviderOption {
	return func(p *MemoryProvider) {
		p.bcryptCost = cost
	}
}

// NewMemoryProvider creates an empty in-memory identity provider.
func NewMemoryProvider(opts ...MemoryProviderOption) *MemoryProvider {
	p := &MemoryProvider{
		byEmail:    make(map[string]*account),
		byID:       make(map[string]*account),
		listeners:  make(map[int]Handler),
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SignIn verifies credentials and makes the matching identity current.
func (p *MemoryProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	p.mu.Lock()
	acc, exists := p.byEmail[normalizeEmail(email)]
	if !exists {
		p.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		p.mu.Unlock()
		return nil, ErrInvalidCredentials
	}

	id := acc.identity
	p.current = &id
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	notify(listeners, &id)
	return &id, nil
}

// SignUp creates a new identity, signs it in and returns it.
func (p *MemoryProvider) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	email = normalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if _, exists := p.byEmail[email]; exists {
		p.mu.Unlock()
		return nil, ErrEmailAlreadyExists
	}

	acc := &account{
		identity: Identity{
			ID:    uuid.NewString(),
			Email: email,
		},
		passwordHash: hash,
	}
	p.byEmail[email] = acc
	p.byID[acc.identity.ID] = acc

	id := acc.identity
	p.current = &id
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	notify(listeners, &id)
	return &id, nil
}

// SetDisplayName updates the display name of an existing identity. The change
// does not fire a state-change event: the authenticated principal is the same.
func (p *MemoryProvider) SetDisplayName(ctx context.Context, id, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acc, exists := p.byID[id]
	if !exists {
		return ErrIdentityNotFound
	}
	acc.identity.DisplayName = name
	if p.current != nil && p.current.ID == id {
		p.current.DisplayName = name
	}
	return nil
}

// SignOut clears the current identity.
func (p *MemoryProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return ErrNotSignedIn
	}
	p.current = nil
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	notify(listeners, nil)
	return nil
}

// Current returns the currently signed-in identity, or nil.
func (p *MemoryProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil
	}
	id := *p.current
	return &id
}

// Subscribe registers fn, fires it immediately with the current identity and
// returns a deregistration func.
func (p *MemoryProvider) Subscribe(fn Handler) Unsubscribe {
	p.mu.Lock()
	key := p.nextListener
	p.nextListener++
	p.listeners[key] = fn

	var current *Identity
	if p.current != nil {
		id := *p.current
		current = &id
	}
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, key)
	}
}

// snapshotListeners copies the handler set so notifications run without
// holding the provider lock; handlers are free to call back into the provider.
func (p *MemoryProvider) snapshotListeners() []Handler {
	listeners := make([]Handler, 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func notify(listeners []Handler, id *Identity) {
	for _, fn := range listeners {
		var copied *Identity
		if id != nil {
			c := *id
			copied = &c
		}
		fn(copied)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ Provider = (*MemoryProvider)(nil)
