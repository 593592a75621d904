package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sei-protocol/ckanpatch/ckanapi"
	"github.com/sei-protocol/ckanpatch/entity"
	"github.com/sei-protocol/ckanpatch/store"
)

// creator is implemented by backends that can also create entities.
type creator interface {
	create(ctx context.Context, kind entity.Kind, caller entity.Caller, doc entity.Document) (entity.Document, error)
}

type storeCreator struct{ s *store.Store }

func (c storeCreator) create(ctx context.Context, kind entity.Kind, _ entity.Caller, doc entity.Document) (entity.Document, error) {
	return c.s.Create(ctx, kind, doc)
}

type apiCreator struct{ c *ckanapi.Client }

func (c apiCreator) create(ctx context.Context, kind entity.Kind, caller entity.Caller, doc entity.Document) (entity.Document, error) {
	return c.c.Backend(kind).Create(ctx, caller.User, doc)
}

// session bundles what a command needs to talk to the configured backend.
type session struct {
	patcher *entity.Patcher
	creator creator
	caller  entity.Caller
	close   func() error
}

func (s *session) backend(kind entity.Kind) entity.Backend {
	b, _ := s.patcher.Backend(kind)
	return b
}

// openSession builds the patcher for the store driver selected in cfg.
func openSession(ctx context.Context, cfg config, metrics *entity.Metrics) (*session, error) {
	var (
		backends = make(map[entity.Kind]entity.Backend, len(entity.Kinds))
		sess     = &session{caller: cfg.caller(), close: func() error { return nil }}
	)

	switch cfg.Store.Driver {
	case "memory", "sqlite", "s3":
		var table store.Table
		switch cfg.Store.Driver {
		case "memory":
			table = store.NewMemoryTable()
		case "sqlite":
			t, err := store.OpenSQLite(cfg.Store.Path)
			if err != nil {
				return nil, err
			}
			table, sess.close = t, t.Close
		case "s3":
			t, err := store.OpenS3(ctx, cfg.Store.S3)
			if err != nil {
				return nil, err
			}
			table = t
		}
		s := store.New(table, store.WithLogger(logger.With().Str("component", "store").Logger()))
		for _, kind := range entity.Kinds {
			backends[kind] = s.Backend(kind)
		}
		sess.creator = storeCreator{s}
	case "api":
		if cfg.API.URL == "" {
			return nil, fmt.Errorf("api.url must be set for the api store driver")
		}
		timeout, err := cfg.apiTimeout()
		if err != nil {
			return nil, err
		}
		client, err := ckanapi.New(cfg.API.URL,
			ckanapi.WithAPIKey(cfg.API.APIKey),
			ckanapi.WithHTTPClient(&http.Client{Timeout: timeout}),
			ckanapi.WithLogger(logger.With().Str("component", "ckanapi").Logger()),
		)
		if err != nil {
			return nil, err
		}
		for _, kind := range entity.Kinds {
			backends[kind] = client.Backend(kind)
		}
		sess.creator = apiCreator{client}
	default:
		return nil, fmt.Errorf("unsupported store driver %q, must be one of memory, sqlite, s3 or api", cfg.Store.Driver)
	}

	opts := []entity.Option{
		entity.WithLogger(logger.With().Str("component", "patcher").Logger()),
		entity.WithMetrics(metrics),
	}
	for kind, b := range backends {
		opts = append(opts, entity.WithBackend(kind, b))
	}
	sess.patcher = entity.NewPatcher(authorizer(cfg), opts...)
	return sess, nil
}

// authorizer returns the access gate for cfg. Against a remote API the local gate
// passes every call; the CKAN server denies unauthorized actions with an Authorization
// Error, which the client maps to entity.AuthorizationError.
func authorizer(cfg config) entity.Authorizer {
	if cfg.Store.Driver == "api" {
		return entity.AuthorizerFunc(func(context.Context, string, entity.Caller, entity.Document) error { return nil })
	}
	return entity.NewAllowList(cfg.Access.AllowedUsers...)
}

var metrics = entity.NewMetrics(registry)
