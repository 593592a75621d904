package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sei-protocol/ckanpatch/entity"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, table Table) *Store {
	t.Helper()
	n := 0
	return New(table,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		}),
	)
}

func seedDataset(t *testing.T, s *Store) entity.Document {
	t.Helper()
	doc, err := s.Create(context.Background(), entity.Dataset, entity.Document{
		"id":    "d1",
		"name":  "census",
		"title": "Census",
		"resources": []any{
			map[string]any{"id": "r1", "name": "a", "url": "http://a"},
			map[string]any{"id": "r2", "name": "b", "url": "http://b"},
		},
	})
	require.NoError(t, err)
	return doc
}

func patcher(s *Store) *entity.Patcher {
	opts := []entity.Option{}
	for _, k := range entity.Kinds {
		opts = append(opts, entity.WithBackend(k, s.Backend(k)))
	}
	return entity.NewPatcher(entity.NewAllowList("admin"), opts...)
}

var admin = entity.Caller{User: "admin"}

func TestCreateAndShow(t *testing.T) {
	ctx := context.Background()
	for name, table := range tables(t) {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, table)
			created := seedDataset(t, s)
			assert.Equal(t, 2, created["num_resources"])
			assert.Equal(t, fixedNow.Format(time.RFC3339), created["metadata_created"])

			byID, err := s.Show(ctx, entity.Dataset, entity.ReadContext{}, "d1")
			require.NoError(t, err)
			byName, err := s.Show(ctx, entity.Dataset, entity.ReadContext{}, "census")
			require.NoError(t, err)
			assert.Equal(t, byID, byName)
			assert.Equal(t, float64(2), byID["num_resources"])

			res, err := s.Show(ctx, entity.Resource, entity.ReadContext{}, "r2")
			require.NoError(t, err)
			assert.Equal(t, "b", res["name"])
			assert.Equal(t, "d1", res["package_id"])
			assert.Equal(t, float64(1), res["position"])

			_, err = s.Show(ctx, entity.Resource, entity.ReadContext{}, "r9")
			require.ErrorIs(t, err, entity.ErrNotFound)
			_, err = s.Show(ctx, entity.Group, entity.ReadContext{}, "nope")
			var nf *entity.NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, entity.Group, nf.Kind)
		})
	}
}

func TestPatchDatasetResources(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryTable())
	seedDataset(t, s)

	result, err := patcher(s).Patch(ctx, entity.Dataset, admin, entity.Document{
		"id": "census",
		"resources": []any{
			map[string]any{"id": "r1", "description": "x"},
			map[string]any{"name": "new", "url": "http://n"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "d1", result["id"])
	assert.Equal(t, "Census", result["title"])
	assert.Equal(t, 2, result["num_resources"])
	resources := result["resources"].([]any)
	require.Len(t, resources, 2)
	assert.Equal(t, entity.Document{
		"id": "r1", "name": "a", "url": "http://a", "description": "x", "package_id": "d1", "position": 0,
	}, resources[0])
	assert.Equal(t, entity.Document{
		"id": "gen-1", "name": "new", "url": "http://n", "package_id": "d1", "position": 1,
	}, resources[1])

	_, err = s.Show(ctx, entity.Resource, entity.ReadContext{}, "r2")
	assert.ErrorIs(t, err, entity.ErrNotFound, "resource left out of the patch is dropped")
}

func TestPatchResource(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryTable())
	seedDataset(t, s)

	result, err := patcher(s).Patch(ctx, entity.Resource, admin, entity.Document{"id": "r2", "format": "CSV"})
	require.NoError(t, err)
	assert.Equal(t, "CSV", result["format"])
	assert.Equal(t, "b", result["name"])

	dataset, err := s.Show(ctx, entity.Dataset, entity.ReadContext{}, "d1")
	require.NoError(t, err)
	resources := dataset["resources"].([]any)
	require.Len(t, resources, 2)
	assert.Equal(t, "CSV", resources[1].(map[string]any)["format"])
	assert.Equal(t, "a", resources[0].(map[string]any)["name"])

	_, err = patcher(s).Patch(ctx, entity.Resource, admin, entity.Document{"id": "r2", "url": 5})
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, entity.Resource, verr.Kind)
	assert.Contains(t, verr.Fields, "url")
}

func TestCreateResource(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryTable())
	seedDataset(t, s)

	res, err := s.Create(ctx, entity.Resource, entity.Document{"package_id": "census", "url": "http://c"})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", res["id"])
	assert.Equal(t, 2, res["position"])

	_, err = s.Create(ctx, entity.Resource, entity.Document{"url": "http://c"})
	assert.ErrorIs(t, err, entity.ErrValidation)
	_, err = s.Create(ctx, entity.Resource, entity.Document{"package_id": "nope"})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestPatchGroupRecomputesDisplayName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryTable())
	_, err := s.Create(ctx, entity.Group, entity.Document{
		"id": "g1", "name": "stats", "title": "Statistics",
		"users": []any{map[string]any{"name": "admin", "capacity": "admin"}},
	})
	require.NoError(t, err)

	result, err := patcher(s).Patch(ctx, entity.Group, admin, entity.Document{"id": "stats", "title": "Official Statistics"})
	require.NoError(t, err)
	assert.Equal(t, "Official Statistics", result["display_name"])
	assert.Equal(t, false, result["is_organization"])
	assert.NotEmpty(t, result["users"], "partial update keeps memberships")

	result, err = patcher(s).Patch(ctx, entity.Group, admin, entity.Document{"id": "g1", "title": ""})
	require.NoError(t, err)
	assert.Equal(t, "stats", result["display_name"])
}

func TestUpdateMemberships(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryTable())
	_, err := s.Create(ctx, entity.Organization, entity.Document{
		"id": "o1", "name": "acme", "packages": []any{"d1"}, "users": []any{"admin"},
	})
	require.NoError(t, err)

	partial, err := s.Update(ctx, entity.Organization, entity.WriteContext{AllowPartialUpdate: true},
		entity.Document{"id": "o1", "name": "acme"})
	require.NoError(t, err)
	assert.Equal(t, []any{"d1"}, partial["packages"])
	assert.Equal(t, true, partial["is_organization"])

	full, err := s.Update(ctx, entity.Organization, entity.WriteContext{},
		entity.Document{"id": "o1", "name": "acme"})
	require.NoError(t, err)
	assert.NotContains(t, full, "packages")
	assert.NotContains(t, full, "users")
}

func TestPatchUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryTable())
	_, err := s.Create(ctx, entity.User, entity.Document{"name": "jane", "fullname": "Jane Roe", "email": "j@example.org"})
	require.NoError(t, err)

	result, err := patcher(s).Patch(ctx, entity.User, admin, entity.Document{"id": "jane", "fullname": "Jane Q. Roe"})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", result["id"])
	assert.Equal(t, "Jane Q. Roe", result["display_name"])
	assert.Equal(t, "j@example.org", result["email"])
}

func TestUpdateErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryTable())
	seedDataset(t, s)
	_, err := s.Create(ctx, entity.Dataset, entity.Document{"id": "d2", "name": "budget"})
	require.NoError(t, err)

	_, err = s.Update(ctx, entity.Dataset, entity.WriteContext{}, entity.Document{"id": "nope", "name": "x"})
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = s.Update(ctx, entity.Dataset, entity.WriteContext{}, entity.Document{"name": "x"})
	assert.ErrorIs(t, err, entity.ErrMissingField)

	_, err = s.Update(ctx, entity.Dataset, entity.WriteContext{}, entity.Document{"id": "d2", "name": "Not Valid"})
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, err = s.Update(ctx, entity.Dataset, entity.WriteContext{}, entity.Document{"id": "d2", "name": "census"})
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "already in use", verr.Fields["name"])

	_, err = s.Update(ctx, entity.Dataset, entity.WriteContext{}, entity.Document{"id": "d2", "name": "budget", "resources": []any{"x"}})
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, err = s.Create(ctx, entity.Dataset, entity.Document{"id": "d2", "name": "other"})
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestNumericIDsMatchAcrossDecoders(t *testing.T) {
	ctx := context.Background()
	for name, table := range tables(t) {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, table)
			created, err := s.Create(ctx, entity.Dataset, entity.Document{"id": 1234567, "name": "numbered"})
			require.NoError(t, err)
			assert.Equal(t, "1234567", created["id"])

			shown, err := s.Show(ctx, entity.Dataset, entity.ReadContext{}, float64(1234567))
			require.NoError(t, err)
			assert.Equal(t, "numbered", shown["name"])

			patched, err := patcher(s).Patch(ctx, entity.Dataset, admin, entity.Document{"id": float64(1234567), "notes": "n"})
			require.NoError(t, err)
			assert.Equal(t, "1234567", patched["id"])
			assert.Equal(t, "n", patched["notes"])

			_, err = s.Create(ctx, entity.Dataset, entity.Document{"id": float64(1234567), "name": "again"})
			assert.ErrorIs(t, err, entity.ErrValidation)
		})
	}
}

func TestPatchSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	table := tables(t)["sqlite"]
	s := newTestStore(t, table)
	seedDataset(t, s)

	_, err := patcher(s).Patch(ctx, entity.Dataset, admin, entity.Document{"id": "d1", "notes": "updated"})
	require.NoError(t, err)

	reopened := newTestStore(t, table)
	doc, err := reopened.Show(ctx, entity.Dataset, entity.ReadContext{}, "d1")
	require.NoError(t, err)
	assert.Equal(t, "updated", doc["notes"])
	assert.Len(t, doc["resources"], 2)
}
