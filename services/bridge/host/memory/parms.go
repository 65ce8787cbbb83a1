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
	"reflect"

	"github.com/AleutianAI/SceneBridge/services/bridge/host"
)

// parmState is the live value of one parameter.
type parmState struct {
	template host.ParmTemplate
	value    any
}

// parmExpr is an expression attached to a parameter. The reference host
// stores expressions verbatim; evaluating them is host property.
type parmExpr struct {
	text     string
	language string
}

// Color-scheme parameter names, used when classifying float triples.
var colorParmNames = map[string]bool{
	"Cd":            true,
	"color":         true,
	"basecolor":     true,
	"diffuse_color": true,
}

// classifyParmType maps a template onto the wire type vocabulary.
func classifyParmType(tpl host.ParmTemplate) string {
	if tpl.Type == "float" && tpl.TupleSize > 1 {
		switch tpl.TupleSize {
		case 2:
			return "vector2"
		case 3:
			if colorParmNames[tpl.Name] {
				return "color"
			}
			return "vector3"
		case 4:
			if colorParmNames[tpl.Name] {
				return "color_alpha"
			}
			return "vector4"
		}
	}
	return tpl.Type
}

func (h *Host) parmState(path, name string) (*node, *parmState, error) {
	n, err := h.resolve(path)
	if err != nil {
		return nil, nil, err
	}
	ps, ok := n.parms[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s on %s", host.ErrParmNotFound, name, path)
	}
	return n, ps, nil
}

func (n *node) parmSnapshot(ps *parmState) *host.Parm {
	p := &host.Parm{
		Name:      ps.template.Name,
		Label:     ps.template.Label,
		Type:      classifyParmType(ps.template),
		Value:     cloneValue(ps.value),
		Default:   cloneValue(ps.template.Default),
		IsDefault: reflect.DeepEqual(ps.value, ps.template.Default),
		Min:       ps.template.Min,
		Max:       ps.template.Max,
		MenuItems: ps.template.MenuItems,
		TupleSize: ps.template.TupleSize,
	}
	if ex, ok := n.expr[ps.template.Name]; ok {
		p.HasExpression = true
		p.Expression = ex.text
		p.ExpressionLanguage = ex.language
	}
	return p
}

// Parm returns one parameter snapshot.
func (h *Host) Parm(path, name string) (*host.Parm, error) {
	n, ps, err := h.parmState(path, name)
	if err != nil {
		return nil, err
	}
	return n.parmSnapshot(ps), nil
}

// Parms returns all parameters on the node in template order.
func (h *Host) Parms(path string) ([]*host.Parm, error) {
	n, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	out := make([]*host.Parm, 0, len(n.parmSeq))
	for _, name := range n.parmSeq {
		out = append(out, n.parmSnapshot(n.parms[name]))
	}
	return out, nil
}

// ParmTemplate returns template metadata for one parameter.
func (h *Host) ParmTemplate(path, name string) (*host.ParmTemplate, error) {
	_, ps, err := h.parmState(path, name)
	if err != nil {
		return nil, err
	}
	tpl := ps.template
	tpl.Type = classifyParmType(ps.template)
	return &tpl, nil
}

// SetParm sets a parameter value, clearing any expression on it.
func (h *Host) SetParm(path, name string, value any) error {
	n, ps, err := h.parmState(path, name)
	if err != nil {
		return err
	}
	coerced, err := coerceParmValue(ps.template, value)
	if err != nil {
		return err
	}
	ps.value = coerced
	delete(n.expr, name)
	n.markDirty()
	h.emit(host.Change{Kind: host.ChangeParmTupleChanged, NodePath: n.path(), ParmName: name})
	return nil
}

// RevertParm restores a parameter to its default.
func (h *Host) RevertParm(path, name string) error {
	n, ps, err := h.parmState(path, name)
	if err != nil {
		return err
	}
	ps.value = cloneValue(ps.template.Default)
	delete(n.expr, name)
	n.markDirty()
	h.emit(host.Change{Kind: host.ChangeParmTupleChanged, NodePath: n.path(), ParmName: name})
	return nil
}

// SetParmExpression attaches an expression to a parameter.
func (h *Host) SetParmExpression(path, name, expression, language string) error {
	n, _, err := h.parmState(path, name)
	if err != nil {
		return err
	}
	if language == "" {
		language = "hscript"
	}
	if n.expr == nil {
		n.expr = make(map[string]parmExpr)
	}
	n.expr[name] = parmExpr{text: expression, language: language}
	n.markDirty()
	h.emit(host.Change{Kind: host.ChangeParmTupleChanged, NodePath: n.path(), ParmName: name})
	return nil
}

// coerceParmValue converts a decoded JSON value into the parameter's
// native representation.
func coerceParmValue(tpl host.ParmTemplate, value any) (any, error) {
	if tpl.TupleSize > 1 {
		items, ok := asAnySlice(value)
		if !ok || len(items) != tpl.TupleSize {
			return nil, fmt.Errorf("%w: %s wants %d components", host.ErrTypeMismatch, tpl.Name, tpl.TupleSize)
		}
		tuple := make([]float64, tpl.TupleSize)
		for i, item := range items {
			f, ok := asFloat(item)
			if !ok {
				return nil, fmt.Errorf("%w: %s component %d", host.ErrTypeMismatch, tpl.Name, i)
			}
			tuple[i] = f
		}
		return tuple, nil
	}

	switch tpl.Type {
	case "int":
		f, ok := asFloat(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants int", host.ErrTypeMismatch, tpl.Name)
		}
		return int(f), nil
	case "float":
		f, ok := asFloat(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants float", host.ErrTypeMismatch, tpl.Name)
		}
		return f, nil
	case "string", "menu":
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants string", host.ErrTypeMismatch, tpl.Name)
		}
		return s, nil
	case "toggle":
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants bool", host.ErrTypeMismatch, tpl.Name)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: unhandled parm type %s", host.ErrTypeMismatch, tpl.Type)
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func asAnySlice(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}

func cloneValue(v any) any {
	if tuple, ok := v.([]float64); ok {
		out := make([]float64, len(tuple))
		copy(out, tuple)
		return out
	}
	return v
}

// Typed parameter readers used by cook functions.

func (n *node) parmInt(name string, fallback int) int {
	if ps, ok := n.parms[name]; ok {
		if i, isInt := ps.value.(int); isInt {
			return i
		}
		if f, isFloat := ps.value.(float64); isFloat {
			return int(f)
		}
	}
	return fallback
}

func (n *node) parmTuple(name string, fallback []float64) []float64 {
	if ps, ok := n.parms[name]; ok {
		if t, isTuple := ps.value.([]float64); isTuple {
			return t
		}
	}
	return fallback
}
