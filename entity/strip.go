package entity

// Strip returns a copy of doc without the server-derived fields that the kind's policy
// lists. The writer recomputes them, so a stale value must not be carried into an update
// when the patch does not mention the field.
func Strip(kind Kind, doc Document) Document {
	out := doc.Clone()
	for _, field := range kind.Policy().Stripped {
		delete(out, field)
	}
	return out
}
