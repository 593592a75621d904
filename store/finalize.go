package store

import (
	"regexp"
	"time"

	"github.com/sei-protocol/ckanpatch/entity"
)

var namePattern = regexp.MustCompile(`^[a-z0-9_-]{2,100}$`)

// finalize validates doc and recomputes the fields derived from other fields.
func (s *Store) finalize(kind entity.Kind, doc entity.Document) error {
	errs := make(map[string]string)

	if kind != entity.Resource {
		switch name, ok := doc["name"].(string); {
		case !ok || name == "":
			errs["name"] = "missing value"
		case kind != entity.User && !namePattern.MatchString(name):
			errs["name"] = "must be 2 to 100 lowercase alphanumeric, - or _ characters"
		}
	}

	switch kind {
	case entity.Dataset:
		s.finalizeResources(doc, errs)
		doc["metadata_modified"] = s.now().UTC().Format(time.RFC3339)
	case entity.Group, entity.Organization:
		doc["display_name"] = firstString(doc, "title", "name")
		doc["is_organization"] = kind == entity.Organization
	case entity.User:
		doc["display_name"] = firstString(doc, "fullname", "name")
	case entity.Resource:
		checkURL(doc, "url", errs)
	}

	if len(errs) > 0 {
		return &entity.ValidationError{Kind: kind, Fields: errs}
	}
	return nil
}

func (s *Store) finalizeResources(dataset entity.Document, errs map[string]string) {
	resources, ok := entity.AsList(dataset["resources"])
	if !ok {
		errs["resources"] = "must be a list"
		return
	}
	out := make([]any, 0, len(resources))
	for i, item := range resources {
		res, ok := entity.AsDocument(item)
		if !ok {
			errs["resources"] = "entries must be documents"
			return
		}
		res = res.Clone()
		if idString(res["id"]) == "" {
			res["id"] = s.newID()
		}
		res["package_id"] = dataset["id"]
		res["position"] = i
		checkURL(res, "url", errs)
		out = append(out, res)
	}
	dataset["resources"] = out
	dataset["num_resources"] = len(out)
}

func checkURL(doc entity.Document, field string, errs map[string]string) {
	if v, ok := doc[field]; ok && v != nil {
		if _, ok := v.(string); !ok {
			errs[field] = "must be a string"
		}
	}
}

func firstString(doc entity.Document, fields ...string) string {
	for _, f := range fields {
		if v, ok := doc[f].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
