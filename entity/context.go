package entity

// Caller is the ambient context a patch call runs under.
type Caller struct {
	// Session identifies the caller's session or transaction with the backing store.
	Session string
	// User is the name of the acting user.
	User string
	// AuthUser is the id of the authenticated user object, when known.
	AuthUser string
	// IgnoreAuth skips authorization checks. Only trusted callers set it.
	IgnoreAuth bool
}

// ReadContext is passed to Reader.Show.
type ReadContext struct {
	Session    string
	User       string
	AuthUser   string
	IgnoreAuth bool
	// ForUpdate signals that the document will be written back.
	ForUpdate bool
}

// WriteContext is passed to Writer.Update.
type WriteContext struct {
	Session    string
	User       string
	AuthUser   string
	IgnoreAuth bool
	// AllowPartialUpdate lets the writer keep collections the document omits.
	AllowPartialUpdate bool
}

// ReadContext derives the minimal context needed to read an entity of the given kind.
func (c Caller) ReadContext(kind Kind) ReadContext {
	p := kind.Policy()
	return ReadContext{
		Session:    c.Session,
		User:       c.User,
		AuthUser:   c.AuthUser,
		IgnoreAuth: p.ReadIgnoreAuth && c.IgnoreAuth,
		ForUpdate:  p.ReadForUpdate,
	}
}

// WriteContext derives the context the update of an entity of the given kind runs with.
func (c Caller) WriteContext(kind Kind) WriteContext {
	return WriteContext{
		Session:            c.Session,
		User:               c.User,
		AuthUser:           c.AuthUser,
		IgnoreAuth:         c.IgnoreAuth,
		AllowPartialUpdate: kind.Policy().AllowPartialUpdate,
	}
}
