// Package disjointset is an index-based union-find over dense item positions.
package disjointset

// Set tracks partitions of the integers [0, n).
type Set struct {
	parent []int
	rank   []int
}

// New returns n singleton partitions.
func New(n int) *Set {
	s := &Set{parent: make([]int, n), rank: make([]int, n)}
	for i := range s.parent {
		s.parent[i] = i
	}
	return s
}

// Find returns the representative index of x's partition.
func (s *Set) Find(x int) int {
	for s.parent[x] != x {
		s.parent[x] = s.parent[s.parent[x]]
		x = s.parent[x]
	}
	return x
}

// Union merges the partitions of a and b.
func (s *Set) Union(a, b int) {
	ra, rb := s.Find(a), s.Find(b)
	if ra == rb {
		return
	}
	switch {
	case s.rank[ra] < s.rank[rb]:
		s.parent[ra] = rb
	case s.rank[ra] > s.rank[rb]:
		s.parent[rb] = ra
	default:
		s.parent[rb] = ra
		s.rank[ra]++
	}
}

// Groups returns the members of every partition. Members are ascending and
// groups are ordered by their smallest member.
func (s *Set) Groups() [][]int {
	index := map[int]int{}
	var groups [][]int
	for i := range s.parent {
		root := s.Find(i)
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}
