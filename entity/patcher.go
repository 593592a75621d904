package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Reader returns the full current representation of an entity.
type Reader interface {
	Show(ctx context.Context, rc ReadContext, id any) (Document, error)
}

// Writer persists a full document and returns the stored result.
type Writer interface {
	Update(ctx context.Context, wc WriteContext, doc Document) (Document, error)
}

// Backend is the show/update pair for one entity kind.
type Backend interface {
	Reader
	Writer
}

// Authorizer decides whether caller may perform action with the given document.
type Authorizer interface {
	Authorize(ctx context.Context, action string, caller Caller, doc Document) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, action string, caller Caller, doc Document) error

func (f AuthorizerFunc) Authorize(ctx context.Context, action string, caller Caller, doc Document) error {
	return f(ctx, action, caller, doc)
}

// Option configures a Patcher.
type Option func(*Patcher)

// WithLogger sets the logger used for patch calls.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Patcher) { p.log = l }
}

// WithMetrics records every patch call in m.
func WithMetrics(m *Metrics) Option {
	return func(p *Patcher) { p.metrics = m }
}

// WithBackend registers the backend serving kind.
func WithBackend(kind Kind, b Backend) Option {
	return func(p *Patcher) { p.backends[kind] = b }
}

// Patcher applies partial documents to entities through their show and update
// operations. Fetch and update are not atomic: a concurrent write to the same entity
// between the two is overwritten for every field the patch does not repeat.
type Patcher struct {
	gate     Authorizer
	backends map[Kind]Backend
	log      zerolog.Logger
	metrics  *Metrics
}

// NewPatcher returns a Patcher that authorizes every call with gate. A nil gate denies
// all calls.
func NewPatcher(gate Authorizer, opts ...Option) *Patcher {
	p := &Patcher{
		gate:     gate,
		backends: make(map[Kind]Backend),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Backend returns the backend registered for kind.
func (p *Patcher) Backend(kind Kind) (Backend, bool) {
	b, ok := p.backends[kind]
	return b, ok
}

// Patch updates the entity identified by partial["id"] with the fields of partial and
// returns the document the writer stored.
func (p *Patcher) Patch(ctx context.Context, kind Kind, caller Caller, partial Document) (result Document, err error) {
	start := time.Now()
	defer func() { p.metrics.observe(kind, start, err) }()

	policy := kind.Policy()
	action := kind.Action("patch")
	log := p.log.With().Str("kind", string(kind)).Str("action", action).Str("user", caller.User).Logger()

	backend, ok := p.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w", kind, ErrNoBackend)
	}
	if err := p.Authorize(ctx, action, caller, partial); err != nil {
		log.Warn().Err(err).Msg("patch denied")
		return nil, err
	}
	id, err := RequireField(partial, "id")
	if err != nil {
		return nil, err
	}
	log = log.With().Interface("id", id).Logger()

	current, err := backend.Show(ctx, caller.ReadContext(kind), id)
	if err != nil {
		log.Warn().Err(err).Msg("show failed")
		return nil, fmt.Errorf("showing %s %v: %w", kind, id, err)
	}

	merged, err := Merge(Strip(kind, current), partial, policy.ListField)
	if err != nil {
		return nil, fmt.Errorf("merging %s %v: %w", kind, id, err)
	}
	log.Debug().Int("fields", len(partial)).Msg("merged patch")

	updated, err := backend.Update(ctx, caller.WriteContext(kind), merged)
	if err != nil {
		log.Warn().Err(err).Msg("update failed")
		return nil, fmt.Errorf("updating %s %v: %w", kind, id, err)
	}
	log.Debug().Msg("patched")
	return updated, nil
}

// Authorize checks that caller may perform action on doc with the patcher's gate.
func (p *Patcher) Authorize(ctx context.Context, action string, caller Caller, doc Document) error {
	if p.gate == nil {
		return &AuthorizationError{Action: action, User: caller.User, Reason: "no authorizer configured"}
	}
	return p.gate.Authorize(ctx, action, caller, doc)
}
