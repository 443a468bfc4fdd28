package category

import (
	"fmt"
	"slices"
	"strings"
)

// Neighbors returns the categories reachable in one step from c, in the order
// they should be explored.
type Neighbors func(c *Category) []*Category

// LinearizationFunc orders a category and the categories reachable from it.
type LinearizationFunc func(c *Category) []*Category

// Strategy selects how a linearization explores the graph and which
// occurrence of a repeated category is kept.
type Strategy int

const (
	// Monotonic explores depth-first in neighbour order and keeps every
	// category at its last occurrence. No category precedes one of its own
	// successors, so a shared base comes after every path leading into it.
	Monotonic Strategy = iota

	// PreOrder explores depth-first and keeps the first occurrence.
	PreOrder

	// LevelOrder explores breadth-first and keeps the first occurrence.
	LevelOrder
)

func (s Strategy) String() string {
	switch s {
	case Monotonic:
		return "monotonic"
	case PreOrder:
		return "pre-order"
	case LevelOrder:
		return "level-order"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses the names produced by Strategy.String.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monotonic":
		return Monotonic, nil
	case "pre-order", "preorder", "dfs":
		return PreOrder, nil
	case "level-order", "levelorder", "bfs":
		return LevelOrder, nil
	default:
		return 0, fmt.Errorf("unknown linearization strategy %q", s)
	}
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Linearize returns start followed by every category reachable through next,
// each exactly once, in the order defined by s.
func Linearize(start *Category, next Neighbors, s Strategy) []*Category {
	switch s {
	case PreOrder:
		return preOrder(start, next)
	case LevelOrder:
		return levelOrder(start, next)
	default:
		return monotonic(start, next)
	}
}

// BottomUp returns a linearization function over parents.
func BottomUp(s Strategy) LinearizationFunc {
	return func(c *Category) []*Category {
		return Linearize(c, (*Category).Parents, s)
	}
}

// TopDown returns a linearization function over children.
func TopDown(s Strategy) LinearizationFunc {
	return func(c *Category) []*Category {
		return Linearize(c, (*Category).Children, s)
	}
}

// monotonic is the keep-last depth-first order computed without expanding
// repeated subgraphs: a post-order walk over reversed neighbour lists,
// reversed at the end.
func monotonic(start *Category, next Neighbors) []*Category {
	visited := make(map[*Category]bool)
	var post []*Category

	var visit func(c *Category)
	visit = func(c *Category) {
		visited[c] = true
		neighbors := next(c)
		for i := len(neighbors) - 1; i >= 0; i-- {
			if n := neighbors[i]; !visited[n] {
				visit(n)
			}
		}
		post = append(post, c)
	}
	visit(start)

	slices.Reverse(post)
	return post
}

func preOrder(start *Category, next Neighbors) []*Category {
	visited := make(map[*Category]bool)
	var out []*Category

	var visit func(c *Category)
	visit = func(c *Category) {
		visited[c] = true
		out = append(out, c)
		for _, n := range next(c) {
			if !visited[n] {
				visit(n)
			}
		}
	}
	visit(start)

	return out
}

func levelOrder(start *Category, next Neighbors) []*Category {
	visited := map[*Category]bool{start: true}
	out := []*Category{start}

	for i := 0; i < len(out); i++ {
		for _, n := range next(out[i]) {
			if !visited[n] {
				visited[n] = true
				out = append(out, n)
			}
		}
	}

	return out
}
