package artifact

// VersionGroup partitions a group's entries by version. Versions and the
// entries within each version keep the order they were first seen in.
type VersionGroup struct {
	order   []string
	entries map[string][]*Entry
}

// GroupByVersion partitions group.Entries by Coordinates.Version().
// Entries without coordinates are skipped.
func GroupByVersion(group *IDGroup) *VersionGroup {
	vg := &VersionGroup{entries: make(map[string][]*Entry)}
	if group == nil {
		return vg
	}
	for _, e := range group.Entries {
		if e == nil || e.Coordinates == nil {
			continue
		}
		v := e.Coordinates.Version()
		if _, ok := vg.entries[v]; !ok {
			vg.order = append(vg.order, v)
		}
		vg.entries[v] = append(vg.entries[v], e)
	}
	return vg
}

// Versions returns the distinct versions in first-seen order.
func (vg *VersionGroup) Versions() []string {
	out := make([]string, len(vg.order))
	copy(out, vg.order)
	return out
}

// Entries returns the entries of one version.
func (vg *VersionGroup) Entries(version string) []*Entry {
	return vg.entries[version]
}

// Len returns the number of distinct versions.
func (vg *VersionGroup) Len() int {
	return len(vg.order)
}
