package selection

import "sort"

// Grouping maps a destination directory to the filenames bound for it, in
// discovery order.
type Grouping map[string][]string

// Group builds a Grouping from matches, keeping their order within each
// directory.
func Group(matches []Match) Grouping {
	g := make(Grouping)
	for _, m := range matches {
		g[m.Dir] = append(g[m.Dir], m.Entry.Name)
	}
	return g
}

// Dirs returns the destination directories sorted.
func (g Grouping) Dirs() []string {
	dirs := make([]string, 0, len(g))
	for d := range g {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Count returns the total number of files across all groups.
func (g Grouping) Count() int {
	n := 0
	for _, files := range g {
		n += len(files)
	}
	return n
}
