package registers

import "strings"

// Node is one level of the subsystem hierarchy
type Node struct {
	// Name is the last path element, empty for the root
	Name string `json:"name"`

	// Path is the full slash separated path, empty for the root
	Path string `json:"path"`

	// Children are the subsystems directly below this one, in order of first appearance
	Children []*Node `json:"children,omitempty"`

	// Registers are the names of the registers directly in this subsystem
	Registers []string `json:"registers,omitempty"`
}

// BuildTree materializes the subsystem hierarchy of a catalog.
// Intermediate nodes are created on demand, so a register in "a/b/c" creates
// "a" and "a/b" even if no register lives in them.
func BuildTree(c *Catalog) *Node {
	root := &Node{}
	nodes := map[string]*Node{"": root}

	var get func(path string) *Node
	get = func(path string) *Node {
		if n, ok := nodes[path]; ok {
			return n
		}
		parentPath, name := "", path
		if i := strings.LastIndexByte(path, '/'); i >= 0 {
			parentPath, name = path[:i], path[i+1:]
		}
		parent := get(parentPath)
		n := &Node{Name: name, Path: path}
		parent.Children = append(parent.Children, n)
		nodes[path] = n
		return n
	}

	for _, d := range c.defs {
		n := get(strings.Trim(d.Subsystem, "/"))
		n.Registers = append(n.Registers, d.Name)
	}
	return root
}

// Find returns the node at path below n, or nil
func (n *Node) Find(path string) *Node {
	path = strings.Trim(path, "/")
	if path == "" {
		return n
	}
	cur := n
	for _, elem := range strings.Split(path, "/") {
		var next *Node
		for _, c := range cur.Children {
			if c.Name == elem {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// Walk calls fn on n and every node below it, depth first, parents before children
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
