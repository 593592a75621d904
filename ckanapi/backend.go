package ckanapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sei-protocol/ckanpatch/entity"
)

// Backend returns the remote show/update pair for kind.
//
// Context flags such as ForUpdate and AllowPartialUpdate only exist server side in
// CKAN and cannot be sent over the action API; the server applies its own defaults.
func (c *Client) Backend(kind entity.Kind) *Backend {
	return &Backend{client: c, kind: kind}
}

// Backend implements entity.Backend against the action API.
type Backend struct {
	client *Client
	kind   entity.Kind
}

// Show calls the show action with the given id or name.
func (b *Backend) Show(ctx context.Context, rc entity.ReadContext, id any) (entity.Document, error) {
	return b.do(ctx, "show", rc.User, id, map[string]any{"id": id})
}

// Update calls the update action with the full document.
func (b *Backend) Update(ctx context.Context, wc entity.WriteContext, doc entity.Document) (entity.Document, error) {
	if wc.AllowPartialUpdate {
		b.client.log.Debug().Str("kind", string(b.kind)).Msg("allow_partial_update is applied server side")
	}
	return b.do(ctx, "update", wc.User, doc.ID(), doc)
}

// Create calls the create action of the backend's kind.
func (b *Backend) Create(ctx context.Context, user string, doc entity.Document) (entity.Document, error) {
	return b.do(ctx, "create", user, doc.ID(), doc)
}

func (b *Backend) do(ctx context.Context, verb, user string, id any, params any) (entity.Document, error) {
	action := b.kind.Action(verb)
	raw, err := b.client.Call(ctx, action, params)
	if err != nil {
		return nil, asEntityError(err, b.kind, id, user)
	}
	var doc entity.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", action, err)
	}
	return doc, nil
}
