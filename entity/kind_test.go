package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"dataset":      Dataset,
		"Package":      Dataset,
		" resource ":   Resource,
		"group":        Group,
		"ORG":          Organization,
		"organization": Organization,
		"user":         User,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseKind("vocabulary")
	assert.Error(t, err)
}

func TestKindAction(t *testing.T) {
	assert.Equal(t, "package_patch", Dataset.Action("patch"))
	assert.Equal(t, "resource_show", Resource.Action("show"))
	assert.Equal(t, "organization_update", Organization.Action("update"))
	assert.Equal(t, "tag_show", Kind("tag").Action("show"))
	assert.False(t, Kind("tag").Valid())
	for _, k := range Kinds {
		assert.True(t, k.Valid(), k)
	}
}

func TestStrip(t *testing.T) {
	doc := Document{"id": 1, "display_name": "D", "title": "T"}

	assert.Equal(t, doc, Strip(Dataset, doc))
	assert.Equal(t, doc, Strip(Resource, doc))
	for _, k := range []Kind{Group, Organization, User} {
		assert.Equal(t, Document{"id": 1, "title": "T"}, Strip(k, doc), k)
	}
	assert.Contains(t, doc, "display_name", "input must not be modified")
}

func TestRequireField(t *testing.T) {
	v, err := RequireField(Document{"id": "x"}, "id")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	_, err = RequireField(Document{"id": nil}, "id")
	assert.ErrorIs(t, err, ErrMissingField)
	_, err = RequireField(nil, "id")
	assert.EqualError(t, err, `missing required field "id"`)
}
