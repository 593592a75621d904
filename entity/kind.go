package entity

import (
	"fmt"
	"strings"
)

// Kind identifies one of the patchable entity types.
type Kind string

const (
	Dataset      Kind = "dataset"
	Resource     Kind = "resource"
	Group        Kind = "group"
	Organization Kind = "organization"
	User         Kind = "user"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{Dataset, Resource, Group, Organization, User}

// ParseKind accepts a kind name, case-insensitively. "package" is accepted as an alias
// of dataset and "org" of organization.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dataset", "package":
		return Dataset, nil
	case "resource":
		return Resource, nil
	case "group":
		return Group, nil
	case "organization", "org":
		return Organization, nil
	case "user":
		return User, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q, must be one of dataset, resource, group, organization or user", s)
	}
}

// Policy holds the per-kind parameters of a patch call.
type Policy struct {
	// ActionPrefix is the name used for the show, update and patch actions, e.g. "package".
	ActionPrefix string
	// Stripped fields are removed from the fetched document before merging.
	Stripped []string
	// ListField names the sub-record list reconciled by id, if any.
	ListField string
	// ReadIgnoreAuth forwards the caller's IgnoreAuth flag to the read.
	ReadIgnoreAuth bool
	// ReadForUpdate asks the reader to prepare the document for a subsequent update.
	ReadForUpdate bool
	// AllowPartialUpdate is set on the write context.
	AllowPartialUpdate bool
}

var policies = map[Kind]Policy{
	Dataset: {
		ActionPrefix:   "package",
		ListField:      "resources",
		ReadIgnoreAuth: true,
		ReadForUpdate:  true,
	},
	Resource: {
		ActionPrefix:   "resource",
		ReadIgnoreAuth: true,
		ReadForUpdate:  true,
	},
	Group: {
		ActionPrefix:       "group",
		Stripped:           []string{"display_name"},
		AllowPartialUpdate: true,
	},
	Organization: {
		ActionPrefix:       "organization",
		Stripped:           []string{"display_name"},
		AllowPartialUpdate: true,
	},
	User: {
		ActionPrefix: "user",
		Stripped:     []string{"display_name"},
	},
}

// Policy returns the patch policy of k. Unknown kinds get the zero policy.
func (k Kind) Policy() Policy {
	return policies[k]
}

// Action returns the action name for the given verb, e.g. Dataset.Action("patch") is
// "package_patch".
func (k Kind) Action(verb string) string {
	prefix := k.Policy().ActionPrefix
	if prefix == "" {
		prefix = string(k)
	}
	return prefix + "_" + verb
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := policies[k]
	return ok
}
