// Package threads is the read-side model over an asset's comments: the
// root/reply partition and the filter/sort/search views. Everything here is
// a pure view over a fetched set; nothing mutates persisted state.
package threads

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/types"
)

type Thread struct {
	Root    *types.Comment   `json:"root"`
	Replies []*types.Comment `json:"replies"`
}

type StatusFilter string

const (
	FilterAll      StatusFilter = "all"
	FilterOpen     StatusFilter = "open"
	FilterResolved StatusFilter = "resolved"
)

type Sort string

const (
	SortNewest   Sort = "newest"
	SortOldest   Sort = "oldest"
	SortTimecode Sort = "timecode"
)

type Options struct {
	Status StatusFilter
	Query  string
	Sort   Sort
}

// Build partitions a flat comment list into root threads with their replies.
// Replies are exactly one level deep; a reply whose parent is missing from
// the set is dropped rather than promoted.
func Build(comments []*types.Comment) []Thread {
	roots := make([]*types.Comment, 0, len(comments))
	replies := make(map[uuid.UUID][]*types.Comment)
	for _, c := range comments {
		if c.ParentID == nil {
			roots = append(roots, c)
		} else {
			replies[*c.ParentID] = append(replies[*c.ParentID], c)
		}
	}
	out := make([]Thread, 0, len(roots))
	for _, root := range roots {
		kids := replies[root.ID]
		sort.SliceStable(kids, func(i, j int) bool {
			return kids[i].CreatedAt.Before(kids[j].CreatedAt)
		})
		out = append(out, Thread{Root: root, Replies: kids})
	}
	return out
}

// Filter applies status, free-text and sort options over built threads. A
// thread matches the text query when the root or any reply matches on body
// or author name.
func Filter(threads []Thread, opts Options) []Thread {
	out := make([]Thread, 0, len(threads))
	query := strings.ToLower(strings.TrimSpace(opts.Query))
	for _, th := range threads {
		if !statusMatches(th.Root, opts.Status) {
			continue
		}
		if query != "" && !threadMatches(th, query) {
			continue
		}
		out = append(out, th)
	}
	switch opts.Sort {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Root.CreatedAt.Before(out[j].Root.CreatedAt)
		})
	case SortTimecode:
		sort.SliceStable(out, func(i, j int) bool {
			return timecodeOf(out[i].Root) < timecodeOf(out[j].Root)
		})
	default: // newest
		sort.SliceStable(out, func(i, j int) bool {
			return out[j].Root.CreatedAt.Before(out[i].Root.CreatedAt)
		})
	}
	return out
}

func statusMatches(root *types.Comment, f StatusFilter) bool {
	switch f {
	case FilterOpen:
		return root.Status == types.CommentOpen
	case FilterResolved:
		return root.Status == types.CommentResolved
	default:
		return true
	}
}

func threadMatches(th Thread, query string) bool {
	if commentMatches(th.Root, query) {
		return true
	}
	for _, r := range th.Replies {
		if commentMatches(r, query) {
			return true
		}
	}
	return false
}

func commentMatches(c *types.Comment, query string) bool {
	if strings.Contains(strings.ToLower(c.Body), query) {
		return true
	}
	return strings.Contains(strings.ToLower(c.AuthorName), query)
}

// Comments without a timecode sort after anchored ones.
func timecodeOf(c *types.Comment) float64 {
	if c.TimecodeSeconds == nil {
		return 1 << 30
	}
	return *c.TimecodeSeconds
}
