package identity

import (
	"slices"

	"github.com/marmos91/refperm/pkg/access"
)

// GroupSet is an unordered set of group UUIDs.
type GroupSet map[access.GroupUUID]struct{}

// NewGroupSet builds a set from uuids.
func NewGroupSet(uuids ...access.GroupUUID) GroupSet {
	s := make(GroupSet, len(uuids))
	for _, u := range uuids {
		s[u] = struct{}{}
	}
	return s
}

// Add inserts uuid.
func (s GroupSet) Add(uuid access.GroupUUID) { s[uuid] = struct{}{} }

// Contains reports membership.
func (s GroupSet) Contains(uuid access.GroupUUID) bool {
	_, ok := s[uuid]
	return ok
}

// ContainsAny reports whether any of uuids is a member.
func (s GroupSet) ContainsAny(uuids []access.GroupUUID) bool {
	for _, u := range uuids {
		if s.Contains(u) {
			return true
		}
	}
	return false
}

// Sorted returns the members in lexical order.
func (s GroupSet) Sorted() []access.GroupUUID {
	out := make([]access.GroupUUID, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// expandIncludes adds every group that transitively includes a member of s.
// includes maps a group to the groups it contains.
func (s GroupSet) expandIncludes(includes map[access.GroupUUID][]access.GroupUUID) {
	if len(includes) == 0 {
		return
	}
	parents := make(map[access.GroupUUID][]access.GroupUUID)
	for parent, children := range includes {
		for _, child := range children {
			parents[child] = append(parents[child], parent)
		}
	}

	queue := make([]access.GroupUUID, 0, len(s))
	for u := range s {
		queue = append(queue, u)
	}
	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]
		for _, p := range parents[g] {
			if !s.Contains(p) {
				s.Add(p)
				queue = append(queue, p)
			}
		}
	}
}

// GroupRef resolves a group written by a person, such as "Registered Users"
// or "developers". System groups match by display name or UUID; any other
// name is used as its own UUID, which is how static and store directories
// key their groups.
func GroupRef(name string) access.GroupReference {
	for uuid, display := range SystemGroups {
		if name == display || access.GroupUUID(name) == uuid {
			return SystemGroupRef(uuid)
		}
	}
	return access.GroupReference{UUID: access.GroupUUID(name), Name: name}
}
