package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sei-protocol/ckanpatch/entity"
)

// membershipFields are the group and organization collections kept by a partial update.
var membershipFields = []string{"packages", "users", "groups"}

// Store implements show, update and create for every entity kind over a Table.
// Resources are not stored on their own: they live in the resources list of their
// dataset.
type Store struct {
	table Table
	log   zerolog.Logger
	now   func() time.Time
	newID func() string

	// mu serialises writes; resource writes rewrite their whole dataset.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source used for metadata timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the generator of new entity ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New returns a Store over t.
func New(t Table, opts ...Option) *Store {
	s := &Store{
		table: t,
		log:   zerolog.Nop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the show/update pair for kind.
func (s *Store) Backend(kind entity.Kind) entity.Backend {
	return kindBackend{store: s, kind: kind}
}

type kindBackend struct {
	store *Store
	kind  entity.Kind
}

func (b kindBackend) Show(ctx context.Context, rc entity.ReadContext, id any) (entity.Document, error) {
	return b.store.Show(ctx, b.kind, rc, id)
}

func (b kindBackend) Update(ctx context.Context, wc entity.WriteContext, doc entity.Document) (entity.Document, error) {
	return b.store.Update(ctx, b.kind, wc, doc)
}

// Show returns the document of kind identified by id. Datasets, groups, organizations
// and users may also be looked up by name.
func (s *Store) Show(ctx context.Context, kind entity.Kind, rc entity.ReadContext, id any) (entity.Document, error) {
	s.log.Debug().Str("kind", string(kind)).Interface("id", id).Bool("for_update", rc.ForUpdate).
		Bool("ignore_auth", rc.IgnoreAuth).Str("user", rc.User).Msg("show")
	key := idString(id)
	if kind == entity.Resource {
		_, res, _, err := s.findResource(ctx, key)
		return res, err
	}
	doc, err := s.load(ctx, kind, key)
	if errors.Is(err, entity.ErrNotFound) {
		doc, err = s.findByName(ctx, kind, key)
	}
	return doc, err
}

// Update replaces the stored document of kind with doc and returns the stored result.
func (s *Store) Update(ctx context.Context, kind entity.Kind, wc entity.WriteContext, doc entity.Document) (entity.Document, error) {
	id, err := entity.RequireField(doc, "id")
	if err != nil {
		return nil, err
	}
	key := idString(id)
	s.log.Debug().Str("kind", string(kind)).Str("id", key).Bool("allow_partial_update", wc.AllowPartialUpdate).
		Str("user", wc.User).Msg("update")

	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == entity.Resource {
		return s.updateResource(ctx, key, doc)
	}

	existing, err := s.load(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	next := doc.Clone()
	next["id"] = key
	if wc.AllowPartialUpdate && (kind == entity.Group || kind == entity.Organization) {
		for _, field := range membershipFields {
			if _, ok := next[field]; !ok {
				if v, ok := existing[field]; ok {
					next[field] = v
				}
			}
		}
	}
	if v, ok := existing["metadata_created"]; ok {
		next["metadata_created"] = v
	}
	if err := s.checkName(ctx, kind, key, next); err != nil {
		return nil, err
	}
	if err := s.finalize(kind, next); err != nil {
		return nil, err
	}
	if err := s.save(ctx, kind, key, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Create stores a new document and returns it with its assigned id and derived fields.
// Resources are appended to the dataset named by their package_id.
func (s *Store) Create(ctx context.Context, kind entity.Kind, doc entity.Document) (entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := doc.Clone()
	if kind == entity.Resource {
		return s.createResource(ctx, next)
	}

	key := idString(next["id"])
	if key == "" {
		key = s.newID()
	} else if _, err := s.table.Get(ctx, kind, key); err == nil {
		return nil, &entity.ValidationError{Kind: kind, Fields: map[string]string{"id": "already exists"}}
	} else if !errors.Is(err, entity.ErrNotFound) {
		return nil, err
	}
	next["id"] = key
	next["metadata_created"] = s.now().UTC().Format(time.RFC3339)
	if err := s.checkName(ctx, kind, key, next); err != nil {
		return nil, err
	}
	if err := s.finalize(kind, next); err != nil {
		return nil, err
	}
	if err := s.save(ctx, kind, key, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Store) updateResource(ctx context.Context, key string, doc entity.Document) (entity.Document, error) {
	dataset, _, index, err := s.findResource(ctx, key)
	if err != nil {
		return nil, err
	}
	resources, _ := entity.AsList(dataset["resources"])
	next := doc.Clone()
	next["id"] = key
	resources[index] = next
	dataset["resources"] = resources
	return s.saveDatasetResource(ctx, dataset, index)
}

func (s *Store) createResource(ctx context.Context, doc entity.Document) (entity.Document, error) {
	pkg, err := entity.RequireField(doc, "package_id")
	if err != nil {
		return nil, &entity.ValidationError{Kind: entity.Resource, Fields: map[string]string{"package_id": "missing value"}}
	}
	dataset, err := s.load(ctx, entity.Dataset, idString(pkg))
	if errors.Is(err, entity.ErrNotFound) {
		dataset, err = s.findByName(ctx, entity.Dataset, idString(pkg))
	}
	if err != nil {
		return nil, err
	}
	resources, _ := entity.AsList(dataset["resources"])
	dataset["resources"] = append(resources, doc)
	return s.saveDatasetResource(ctx, dataset, len(resources))
}

func (s *Store) saveDatasetResource(ctx context.Context, dataset entity.Document, index int) (entity.Document, error) {
	if err := s.finalize(entity.Dataset, dataset); err != nil {
		var verr *entity.ValidationError
		if errors.As(err, &verr) {
			verr.Kind = entity.Resource
		}
		return nil, err
	}
	key := idString(dataset["id"])
	if err := s.save(ctx, entity.Dataset, key, dataset); err != nil {
		return nil, err
	}
	resources, _ := entity.AsList(dataset["resources"])
	res, _ := entity.AsDocument(resources[index])
	return res, nil
}

// findResource returns the dataset holding resource id, the resource and its index.
func (s *Store) findResource(ctx context.Context, id string) (entity.Document, entity.Document, int, error) {
	var (
		dataset, resource entity.Document
		index             int
	)
	err := s.table.Scan(ctx, entity.Dataset, func(_ string, body []byte) error {
		doc, err := decode(body)
		if err != nil {
			return err
		}
		resources, _ := entity.AsList(doc["resources"])
		for i, item := range resources {
			r, ok := entity.AsDocument(item)
			if ok && idString(r["id"]) == id {
				dataset, resource, index = doc, r, i
				return ErrStopScan
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}
	if resource == nil {
		return nil, nil, 0, &entity.NotFoundError{Kind: entity.Resource, ID: id}
	}
	return dataset, resource.Clone(), index, nil
}

func (s *Store) findByName(ctx context.Context, kind entity.Kind, name string) (entity.Document, error) {
	var found entity.Document
	err := s.table.Scan(ctx, kind, func(_ string, body []byte) error {
		doc, err := decode(body)
		if err != nil {
			return err
		}
		if n, ok := doc["name"].(string); ok && n == name {
			found = doc
			return ErrStopScan
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, &entity.NotFoundError{Kind: kind, ID: name}
	}
	return found, nil
}

func (s *Store) checkName(ctx context.Context, kind entity.Kind, id string, doc entity.Document) error {
	name, ok := doc["name"].(string)
	if !ok || name == "" {
		return nil
	}
	other, err := s.findByName(ctx, kind, name)
	if errors.Is(err, entity.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if idString(other["id"]) != id {
		return &entity.ValidationError{Kind: kind, Fields: map[string]string{"name": "already in use"}}
	}
	return nil
}

func (s *Store) load(ctx context.Context, kind entity.Kind, id string) (entity.Document, error) {
	body, err := s.table.Get(ctx, kind, id)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, &entity.NotFoundError{Kind: kind, ID: id}
	}
	if err != nil {
		return nil, err
	}
	return decode(body)
}

func (s *Store) save(ctx context.Context, kind entity.Kind, id string, doc entity.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", kind, id, err)
	}
	return s.table.Put(ctx, kind, id, body)
}

func decode(body []byte) (entity.Document, error) {
	var doc entity.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}
