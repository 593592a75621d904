package entity

import "context"

// AllowList authorizes the listed users for every action. Callers with IgnoreAuth set
// are always allowed.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from user names.
func NewAllowList(users ...string) AllowList {
	a := make(AllowList, len(users))
	for _, u := range users {
		a[u] = struct{}{}
	}
	return a
}

// Authorize allows callers with IgnoreAuth set and listed users.
func (a AllowList) Authorize(_ context.Context, action string, caller Caller, _ Document) error {
	if caller.IgnoreAuth {
		return nil
	}
	if _, ok := a[caller.User]; ok && caller.User != "" {
		return nil
	}
	return &AuthorizationError{Action: action, User: caller.User}
}
