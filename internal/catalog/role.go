package catalog

import "strings"

// RoleAll selects every entry and is the implicit tag of untagged entries.
const RoleAll = "all"

// Roles lists the selectable roles in display order.
var Roles = []string{"manager", "chef", "delivery", "customer", "quality", RoleAll}

// EffectiveTags returns the entry's tags, or {"all"} when it has none.
func (e Entry) EffectiveTags() []string {
	if len(e.Tags) == 0 {
		return []string{RoleAll}
	}
	return e.Tags
}

// VisibleTo reports whether the entry is shown for role. Matching ignores case.
func (e Entry) VisibleTo(role string) bool {
	for _, tag := range e.EffectiveTags() {
		if strings.EqualFold(tag, RoleAll) || strings.EqualFold(tag, role) {
			return true
		}
	}
	return false
}

// FilterByRole returns the entries visible to role, keeping their order.
// Selecting "all" does not reveal entries tagged for other roles only; an
// entry needs the "all" tag or a tag matching role.
func FilterByRole(entries []Entry, role string) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.VisibleTo(role) {
			out = append(out, e)
		}
	}
	return out
}

// KnownRole reports whether role is one of Roles, ignoring case.
func KnownRole(role string) bool {
	for _, r := range Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
