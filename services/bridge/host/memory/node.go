// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/SceneBridge/services/bridge/host"
)

// Node categories, mirroring the embedding application's manager levels.
const (
	categoryDirector = "Director"
	categoryManager  = "Manager"
	categoryObject   = "Object"
	categorySop      = "Sop"
)

// nodeFlags is the closed flag vocabulary.
var nodeFlags = map[string]bool{
	"display":    true,
	"render":     true,
	"bypass":     true,
	"template":   true,
	"selectable": true,
}

// node is the internal mutable representation of one scene node.
type node struct {
	name     string
	typeName string
	category string
	parent   *node
	children []*node
	inputs   []*node // slot-indexed, nil means unconnected
	flags    map[string]bool
	parms    map[string]*parmState
	parmSeq  []string

	expr map[string]parmExpr

	geo        *geoData
	dirty      bool
	cookCount  int
	lastCookMS float64
	cookErrs   []string
}

func (n *node) path() string {
	if n.parent == nil {
		return "/"
	}
	parts := []string{}
	for cur := n; cur.parent != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *node) countDescendants() int {
	total := len(n.children)
	for _, c := range n.children {
		total += c.countDescendants()
	}
	return total
}

// markDirty dirties this node and everything downstream of it.
func (n *node) markDirty() {
	if n.dirty {
		return
	}
	n.dirty = true
	n.propagateDirty()
}

// propagateDirty dirties everything whose cook depends on n: siblings
// wired to its output and, since containers display their children, the
// parent container.
func (n *node) propagateDirty() {
	if n.parent == nil {
		return
	}
	for _, sib := range n.parent.children {
		for _, in := range sib.inputs {
			if in == n {
				sib.markDirty()
			}
		}
	}
	if typeTable[n.parent.typeName].geometric {
		n.parent.markDirty()
	}
}

// snapshot builds the exported view of the node.
func (n *node) snapshot() *host.Node {
	children := make([]string, 0, len(n.children))
	for _, c := range n.children {
		children = append(children, c.path())
	}
	inputs := make([]string, 0, len(n.inputs))
	for _, in := range n.inputs {
		if in != nil {
			inputs = append(inputs, in.path())
		}
	}
	outputs := []string{}
	if n.parent != nil {
		for _, sib := range n.parent.children {
			for _, in := range sib.inputs {
				if in == n {
					outputs = append(outputs, sib.path())
					break
				}
			}
		}
	}

	flags := make(map[string]bool, len(n.flags))
	for k, v := range n.flags {
		flags[k] = v
	}
	parent := ""
	if n.parent != nil {
		parent = n.parent.path()
	}

	return &host.Node{
		Path:            n.path(),
		Name:            n.name,
		Type:            n.typeName,
		Category:        n.category,
		Parent:          parent,
		Children:        children,
		Inputs:          inputs,
		Outputs:         outputs,
		Flags:           flags,
		Errors:          append([]string{}, n.cookErrs...),
		Warnings:        []string{},
		IsTimeDependent: n.timeDependent(),
	}
}

// serialize renders the subtree for scene files.
func (n *node) serialize() map[string]any {
	parms := map[string]any{}
	for _, name := range n.parmSeq {
		parms[name] = n.parms[name].value
	}
	children := make([]map[string]any, 0, len(n.children))
	for _, c := range n.children {
		children = append(children, c.serialize())
	}
	inputs := make([]string, 0, len(n.inputs))
	for _, in := range n.inputs {
		if in == nil {
			inputs = append(inputs, "")
		} else {
			inputs = append(inputs, in.path())
		}
	}
	return map[string]any{
		"name":     n.name,
		"type":     n.typeName,
		"parms":    parms,
		"flags":    n.flags,
		"inputs":   inputs,
		"children": children,
	}
}

// resolve walks an absolute path from the root.
func (h *Host) resolve(path string) (*node, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %s", host.ErrNodeNotFound, path)
	}
	cur := h.root
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		next := cur.child(part)
		if next == nil {
			return nil, fmt.Errorf("%w: %s", host.ErrNodeNotFound, path)
		}
		cur = next
	}
	return cur, nil
}

// NodeByPath returns the node at an absolute path.
func (h *Host) NodeByPath(path string) (*host.Node, error) {
	n, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	return n.snapshot(), nil
}

// ListChildren returns direct children of the node at path.
func (h *Host) ListChildren(path string) ([]*host.Node, error) {
	n, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	out := make([]*host.Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c.snapshot())
	}
	return out, nil
}

// FindNodes searches the subtree under root by name substring and type.
func (h *Host) FindNodes(root, name, typeName string) ([]*host.Node, error) {
	start, err := h.resolve(root)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(name)
	var out []*host.Node
	var walk func(*node)
	walk = func(n *node) {
		for _, c := range n.children {
			if (needle == "" || strings.Contains(strings.ToLower(c.name), needle)) &&
				(typeName == "" || c.typeName == typeName) {
				out = append(out, c.snapshot())
			}
			walk(c)
		}
	}
	walk(start)
	return out, nil
}

// CreateNode creates a child node of the given type under parent.
func (h *Host) CreateNode(parent, typeName, name string) (*host.Node, error) {
	p, err := h.resolve(parent)
	if err != nil {
		return nil, err
	}
	spec, ok := typeTable[typeName]
	if !ok || spec.container != p.category {
		return nil, fmt.Errorf("%w: %s under %s", host.ErrUnknownType, typeName, parent)
	}

	if name == "" {
		name = typeName
	}
	name = p.uniqueChildName(name)

	n := &node{
		name:     name,
		typeName: typeName,
		category: spec.category,
		parent:   p,
		flags:    map[string]bool{},
		parms:    map[string]*parmState{},
		dirty:    true,
	}
	for _, tpl := range spec.parms {
		n.parms[tpl.Name] = &parmState{template: tpl, value: cloneValue(tpl.Default)}
		n.parmSeq = append(n.parmSeq, tpl.Name)
	}
	p.children = append(p.children, n)
	n.propagateDirty()

	// First SOP in a network takes the display and render flags.
	if spec.category == categorySop && len(p.children) == 1 {
		n.flags["display"] = true
		n.flags["render"] = true
	}

	h.emit(host.Change{Kind: host.ChangeChildCreated, NodePath: p.path(), Child: n.path()})
	return n.snapshot(), nil
}

// uniqueChildName appends a numeric suffix until the name is free.
func (n *node) uniqueChildName(base string) string {
	if n.child(base) == nil {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if n.child(candidate) == nil {
			return candidate
		}
	}
}

// DeleteNode removes a node and its subtree, clearing any wires into it.
func (h *Host) DeleteNode(path string) error {
	n, err := h.resolve(path)
	if err != nil {
		return err
	}
	if n.parent == nil {
		return fmt.Errorf("%w: cannot delete root", host.ErrInvalidInput)
	}
	p := n.parent
	deleted := n.path()

	for _, sib := range p.children {
		for i, in := range sib.inputs {
			if in == n {
				sib.inputs[i] = nil
				sib.markDirty()
			}
		}
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
	if typeTable[p.typeName].geometric {
		p.markDirty()
	}

	h.emit(host.Change{Kind: host.ChangeChildDeleted, NodePath: p.path(), Child: deleted})
	return nil
}

// RenameNode renames a node in place.
func (h *Host) RenameNode(path, name string) (*host.Node, error) {
	n, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	if n.parent == nil {
		return nil, fmt.Errorf("%w: cannot rename root", host.ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", host.ErrInvalidInput)
	}
	if existing := n.parent.child(name); existing != nil && existing != n {
		return nil, fmt.Errorf("%w: %s", host.ErrNameInUse, name)
	}
	n.name = name
	return n.snapshot(), nil
}

// ConnectNodes wires from's output into to's input slot.
func (h *Host) ConnectNodes(from, to string, inputIndex int) error {
	src, err := h.resolve(from)
	if err != nil {
		return err
	}
	dst, err := h.resolve(to)
	if err != nil {
		return err
	}
	if src == dst || src.parent != dst.parent {
		return fmt.Errorf("%w: %s -> %s", host.ErrInvalidInput, from, to)
	}
	spec := typeTable[dst.typeName]
	if inputIndex < 0 || inputIndex >= spec.maxInputs {
		return fmt.Errorf("%w: slot %d on %s", host.ErrInvalidInput, inputIndex, to)
	}
	for len(dst.inputs) <= inputIndex {
		dst.inputs = append(dst.inputs, nil)
	}
	dst.inputs[inputIndex] = src
	dst.markDirty()

	h.emit(host.Change{Kind: host.ChangeInputRewired, NodePath: dst.path()})
	return nil
}

// DisconnectInput clears one input slot.
func (h *Host) DisconnectInput(path string, inputIndex int) error {
	n, err := h.resolve(path)
	if err != nil {
		return err
	}
	spec := typeTable[n.typeName]
	if inputIndex < 0 || inputIndex >= spec.maxInputs {
		return fmt.Errorf("%w: slot %d on %s", host.ErrInvalidInput, inputIndex, path)
	}
	if inputIndex < len(n.inputs) && n.inputs[inputIndex] != nil {
		n.inputs[inputIndex] = nil
		n.markDirty()
		h.emit(host.Change{Kind: host.ChangeInputRewired, NodePath: n.path()})
	}
	return nil
}

// SetFlag sets one of the node's standard flags. The display flag is
// exclusive within a network: setting it clears it on siblings.
func (h *Host) SetFlag(path, flag string, value bool) error {
	n, err := h.resolve(path)
	if err != nil {
		return err
	}
	if !nodeFlags[flag] {
		return fmt.Errorf("%w: %s", host.ErrUnknownFlag, flag)
	}
	if flag == "display" && value && n.parent != nil {
		for _, sib := range n.parent.children {
			delete(sib.flags, "display")
		}
	}
	if value {
		n.flags[flag] = true
	} else {
		delete(n.flags, flag)
	}
	if flag == "display" || flag == "bypass" {
		n.dirty = true
		n.propagateDirty()
		h.emit(host.Change{Kind: host.ChangeAppearanceChanged, NodePath: n.path()})
	}
	return nil
}

// LayoutChildren is a no-op for the reference host; positions are not
// modeled. It still validates the path so handlers behave uniformly.
func (h *Host) LayoutChildren(path string) error {
	_, err := h.resolve(path)
	return err
}
