package service

// conflictGraph is an undirected graph over course ids. An edge means the two
// courses share at least one enrolled student and must not sit the same exam
// slot. It is rebuilt from scratch for every exam scheduling run.
type conflictGraph map[string]map[string]struct{}

// buildConflictGraph computes pairwise student intersections. Quadratic in
// course count, linear in roster size per pair; fine for catalogs of
// hundreds of courses.
func buildConflictGraph(enrollment map[string][]string) conflictGraph {
	ids := make([]string, 0, len(enrollment))
	sets := make(map[string]map[string]struct{}, len(enrollment))
	for courseID, students := range enrollment {
		ids = append(ids, courseID)
		set := make(map[string]struct{}, len(students))
		for _, studentID := range students {
			set[studentID] = struct{}{}
		}
		sets[courseID] = set
	}

	graph := make(conflictGraph, len(ids))
	for _, id := range ids {
		graph[id] = make(map[string]struct{})
	}

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			if setsIntersect(sets[a], sets[b]) {
				graph[a][b] = struct{}{}
				graph[b][a] = struct{}{}
			}
		}
	}
	return graph
}

func setsIntersect(a, b map[string]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for key := range a {
		if _, ok := b[key]; ok {
			return true
		}
	}
	return false
}

// degree returns the number of conflicting courses for a course.
func (g conflictGraph) degree(courseID string) int {
	return len(g[courseID])
}

// adjacent reports whether two courses share students.
func (g conflictGraph) adjacent(a, b string) bool {
	_, ok := g[a][b]
	return ok
}
