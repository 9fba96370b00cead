package models

import (
	"sort"
	"strings"
)

// TreeNode is a page arranged into its resolved hierarchy.
type TreeNode struct {
	Page     *Page       `json:"page"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildForest arranges pages into trees using their parent ids. A page whose
// parent is not present in the input becomes a root, so a partial set of
// pages still yields a usable forest. Siblings are ordered by title,
// case-insensitively, at every depth.
func BuildForest(pages []*Page) []*TreeNode {
	nodes := make(map[string]*TreeNode, len(pages))
	for _, p := range pages {
		if p == nil {
			continue
		}
		nodes[p.ID] = &TreeNode{Page: p}
	}

	var roots []*TreeNode
	for _, p := range pages {
		if p == nil {
			continue
		}
		node := nodes[p.ID]
		if parent, ok := nodes[p.ParentID]; ok && p.ParentID != p.ID {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	sortForest(roots)
	return roots
}

func sortForest(nodes []*TreeNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Page.Title) < strings.ToLower(nodes[j].Page.Title)
	})
	for _, n := range nodes {
		sortForest(n.Children)
	}
}
