package smartsheet

import "strings"

// AccessScope is a permission requested during OAuth authorization.
type AccessScope string

// Access scopes understood by the authorization endpoint.
const (
	ScopeReadSheets      AccessScope = "READ_SHEETS"
	ScopeWriteSheets     AccessScope = "WRITE_SHEETS"
	ScopeShareSheets     AccessScope = "SHARE_SHEETS"
	ScopeDeleteSheets    AccessScope = "DELETE_SHEETS"
	ScopeCreateSheets    AccessScope = "CREATE_SHEETS"
	ScopeReadUsers       AccessScope = "READ_USERS"
	ScopeAdminUsers      AccessScope = "ADMIN_USERS"
	ScopeAdminSheets     AccessScope = "ADMIN_SHEETS"
	ScopeAdminWorkspaces AccessScope = "ADMIN_WORKSPACES"
	ScopeReadContacts    AccessScope = "READ_CONTACTS"
	ScopeReadEvents      AccessScope = "READ_EVENTS"
	ScopeAdminWebhooks   AccessScope = "ADMIN_WEBHOOKS"
)

var allScopes = []AccessScope{
	ScopeReadSheets,
	ScopeWriteSheets,
	ScopeShareSheets,
	ScopeDeleteSheets,
	ScopeCreateSheets,
	ScopeReadUsers,
	ScopeAdminUsers,
	ScopeAdminSheets,
	ScopeAdminWorkspaces,
	ScopeReadContacts,
	ScopeReadEvents,
	ScopeAdminWebhooks,
}

// AllScopes returns every known scope.
func AllScopes() []AccessScope {
	out := make([]AccessScope, len(allScopes))
	copy(out, allScopes)
	return out
}

// DefaultScopes returns the scopes most integrations need to read and edit sheets.
func DefaultScopes() []AccessScope {
	return []AccessScope{ScopeReadSheets, ScopeWriteSheets}
}

// String returns the canonical scope name.
func (s AccessScope) String() string {
	return string(s)
}

// Valid reports whether s is a known scope.
func (s AccessScope) Valid() bool {
	for _, known := range allScopes {
		if s == known {
			return true
		}
	}
	return false
}

// ParseAccessScope parses a scope name, ignoring case and surrounding space.
func ParseAccessScope(name string) (AccessScope, error) {
	s := AccessScope(strings.ToUpper(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", invalidArgument("unknown access scope %q", name)
	}
	return s, nil
}

// ParseAccessScopes parses a comma- or space-separated scope list.
func ParseAccessScopes(list string) ([]AccessScope, error) {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' '
	})
	scopes := make([]AccessScope, 0, len(fields))
	for _, f := range fields {
		s, err := ParseAccessScope(f)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}

// joinScopes renders scopes in order, dropping duplicates.
func joinScopes(scopes []AccessScope) string {
	var b strings.Builder
	seen := make(map[AccessScope]bool, len(scopes))
	for _, s := range scopes {
		if seen[s] {
			continue
		}
		seen[s] = true
		b.WriteString(s.String())
		b.WriteByte(' ')
	}
	return strings.TrimSuffix(b.String(), " ")
}
