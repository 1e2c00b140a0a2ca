// Package identity resolves and carries the authenticated principal for a
// request. Guards and view scaffolds consume the principal instead of reading
// credentials themselves.
package identity

import "strings"

// Principal describes the authenticated subject of a request. The zero value
// is the anonymous principal.
type Principal struct {
	ID          string
	DisplayName string
	Staff       bool
	Superuser   bool
	Permissions []string
}

// Anonymous reports whether the principal carries no authenticated identity.
func (p Principal) Anonymous() bool {
	return strings.TrimSpace(p.ID) == ""
}

// Authenticated reports whether the principal carries an authenticated identity.
func (p Principal) Authenticated() bool {
	return !p.Anonymous()
}

// ValidPermission reports whether perm follows the <realm>.<action> format
// with exactly two non-empty dot-separated parts.
func ValidPermission(perm string) bool {
	parts := strings.Split(perm, ".")
	if len(parts) != 2 {
		return false
	}
	return strings.TrimSpace(parts[0]) != "" && strings.TrimSpace(parts[1]) != ""
}

// Can reports whether the principal holds the permission. Superusers hold
// every permission implicitly.
func (p Principal) Can(perm string) bool {
	if p.Anonymous() {
		return false
	}
	if p.Superuser {
		return true
	}
	perm = strings.TrimSpace(perm)
	if perm == "" {
		return false
	}
	for _, granted := range p.Permissions {
		if strings.TrimSpace(granted) == perm {
			return true
		}
	}
	return false
}

// CanAll reports whether the principal holds every listed permission. An
// empty list is vacuously satisfied.
func (p Principal) CanAll(perms []string) bool {
	for _, perm := range perms {
		if !p.Can(perm) {
			return false
		}
	}
	return true
}

// CanAny reports whether the principal holds at least one listed permission.
// An empty list is never satisfied.
func (p Principal) CanAny(perms []string) bool {
	for _, perm := range perms {
		if p.Can(perm) {
			return true
		}
	}
	return false
}
