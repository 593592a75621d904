package entity

import "maps"

// Merge overlays patch onto base and returns the full document to hand to an update.
//
// Top-level fields of patch replace those of base; nested documents are not merged.
// When listField is set and present in patch, its entries are reconciled against the
// base list by id: an entry whose id matches a base entry is that entry overlaid with the
// patch entry, any other entry is kept as given, and base entries the patch does not name
// are dropped. The result always carries the id of base. Neither input is modified.
func Merge(base, patch Document, listField string) (Document, error) {
	var (
		reconciled []any
		hasList    bool
	)
	if listField != "" {
		if patchList, ok := patch[listField]; ok {
			var err error
			reconciled, err = reconcile(listField, base[listField], patchList)
			if err != nil {
				return nil, err
			}
			hasList = true
		}
	}

	result := make(Document, len(base)+len(patch))
	maps.Copy(result, base)
	for k, v := range patch {
		if hasList && k == listField {
			continue
		}
		result[k] = v
	}
	if hasList {
		result[listField] = reconciled
	}
	if id, ok := base["id"]; ok {
		result["id"] = id
	} else {
		delete(result, "id")
	}
	return result, nil
}

func reconcile(field string, baseList, patchList any) ([]any, error) {
	// A missing base list is empty; a null patch list is not a list.
	if patchList == nil {
		return nil, &ShapeError{Field: field, Index: -1, Value: nil}
	}
	patchItems, ok := AsList(patchList)
	if !ok {
		return nil, &ShapeError{Field: field, Index: -1, Value: patchList}
	}
	baseItems, ok := AsList(baseList)
	if !ok {
		return nil, &ShapeError{Field: field, Index: -1, Value: baseList}
	}

	out := make([]any, len(patchItems))
	for i, item := range patchItems {
		p, ok := AsDocument(item)
		if !ok {
			return nil, &ShapeError{Field: field, Index: i, Value: item}
		}
		out[i] = p
		id, ok := p["id"]
		if !ok || id == nil {
			continue
		}
		for _, candidate := range baseItems {
			b, ok := AsDocument(candidate)
			if !ok || !SameID(b["id"], id) {
				continue
			}
			merged := make(Document, len(b)+len(p))
			maps.Copy(merged, b)
			maps.Copy(merged, p)
			out[i] = merged
			break
		}
	}
	return out, nil
}
