package identity

import "strings"

// Role selects the workflow a resolved user is routed into.
type Role int

const (
	RoleOperator Role = iota + 1
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleOperator:
		return "operator"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Identity is a user resolved from a tag.
type Identity struct {
	Name string
	Role Role
}

// Resolver maps tag identifiers to identities using static allow-lists.
// The tables are never mutated after construction.
type Resolver struct {
	admins    map[string]string
	operators map[string]string
}

// NewResolver copies the given allow-lists (tag → display name).
func NewResolver(admins, operators map[string]string) *Resolver {
	return &Resolver{
		admins:    copyTable(admins),
		operators: copyTable(operators),
	}
}

// Resolve trims raw and looks it up in the admin table first, then in the
// operator table. ok is false for unknown tags, which is a normal outcome.
func (r *Resolver) Resolve(raw string) (id Identity, ok bool) {
	tag := strings.TrimSpace(raw)
	if tag == "" {
		return Identity{}, false
	}
	if name, found := r.admins[tag]; found {
		return Identity{Name: name, Role: RoleAdmin}, true
	}
	if name, found := r.operators[tag]; found {
		return Identity{Name: name, Role: RoleOperator}, true
	}
	return Identity{}, false
}

func copyTable(src map[string]string) map[string]string {
	m := make(map[string]string, len(src))
	for k, v := range src {
		m[strings.TrimSpace(k)] = v
	}
	return m
}
