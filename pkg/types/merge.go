package types

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/fxamacker/cbor/v2"
)

// Opt is an optional field value. Set distinguishes "absent" from the zero
// value, so false, 0 and "" are ordinary values that can be merged.
type Opt[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Set: true}
}

// IsZero reports whether the option is absent. Used by omitzero.
func (o Opt[T]) IsZero() bool {
	return !o.Set
}

// MarshalJSON encodes the value, or null when absent.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON marks the option as set unless the value is null.
func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// cborNull and cborUndefined are the one-byte CBOR simple values that decode
// to an absent option.
const (
	cborNull      = 0xf6
	cborUndefined = 0xf7
)

// MarshalCBOR encodes the value, or CBOR null when absent.
func (o Opt[T]) MarshalCBOR() ([]byte, error) {
	if !o.Set {
		return []byte{cborNull}, nil
	}
	return cbor.Marshal(o.Value)
}

// UnmarshalCBOR mirrors UnmarshalJSON for CBOR input.
func (o *Opt[T]) UnmarshalCBOR(data []byte) error {
	if len(data) == 1 && (data[0] == cborNull || data[0] == cborUndefined) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Field names a mergeable TabNode field.
type Field string

const (
	FieldURL         Field = "url"
	FieldTitle       Field = "title"
	FieldFaviconURL  Field = "favicon_url"
	FieldIsCollapsed Field = "is_collapsed"
	FieldActive      Field = "active"
	FieldParent      Field = "parent_tab_id"
	FieldChildren    Field = "child_tab_ids"
	FieldPosition    Field = "position"
)

// Policy decides whether a patch value may replace the current value.
type Policy int

const (
	// Keep never takes the patch value.
	Keep Policy = iota
	// Overwrite takes the patch value when the patch carries the field.
	Overwrite
)

// MergePolicy maps each field to its policy. Fields missing from the map
// are kept.
type MergePolicy map[Field]Policy

// UpdatePolicy governs host and UI updates: presentation fields only.
var UpdatePolicy = MergePolicy{
	FieldURL:         Overwrite,
	FieldTitle:       Overwrite,
	FieldFaviconURL:  Overwrite,
	FieldIsCollapsed: Overwrite,
	FieldActive:      Overwrite,
	FieldParent:      Keep,
	FieldChildren:    Keep,
	FieldPosition:    Keep,
}

// RestorePolicy governs transplanting structure from a closed window onto
// the restored one: hierarchy, order and collapse state only.
var RestorePolicy = MergePolicy{
	FieldURL:         Keep,
	FieldTitle:       Keep,
	FieldFaviconURL:  Keep,
	FieldIsCollapsed: Overwrite,
	FieldActive:      Keep,
	FieldParent:      Overwrite,
	FieldChildren:    Overwrite,
	FieldPosition:    Overwrite,
}

// Patch carries optional values for every mergeable field.
type Patch struct {
	URL         Opt[string]
	Title       Opt[string]
	FaviconURL  Opt[string]
	IsCollapsed Opt[bool]
	Active      Opt[bool]
	ParentTabID Opt[TabID]
	ChildTabIDs Opt[[]TabID]
	Position    Opt[int]
}

// PatchFrom captures the structural fields of a node, as used when
// transplanting it onto another node.
func PatchFrom(n *TabNode) Patch {
	return Patch{
		URL:         Some(n.URL),
		Title:       Some(n.Title),
		FaviconURL:  Some(n.FaviconURL),
		IsCollapsed: Some(n.IsCollapsed),
		Active:      Some(n.Active),
		ParentTabID: Some(n.ParentTabID),
		ChildTabIDs: Some(slices.Clone(n.ChildTabIDs)),
		Position:    Some(n.Position),
	}
}

var mergeOrder = []struct {
	field Field
	apply func(n *TabNode, p Patch) bool
}{
	{FieldURL, func(n *TabNode, p Patch) bool { return assign(&n.URL, p.URL) }},
	{FieldTitle, func(n *TabNode, p Patch) bool { return assign(&n.Title, p.Title) }},
	{FieldFaviconURL, func(n *TabNode, p Patch) bool { return assign(&n.FaviconURL, p.FaviconURL) }},
	{FieldIsCollapsed, func(n *TabNode, p Patch) bool { return assign(&n.IsCollapsed, p.IsCollapsed) }},
	{FieldActive, func(n *TabNode, p Patch) bool { return assign(&n.Active, p.Active) }},
	{FieldParent, func(n *TabNode, p Patch) bool { return assign(&n.ParentTabID, p.ParentTabID) }},
	{FieldChildren, func(n *TabNode, p Patch) bool {
		if !p.ChildTabIDs.Set || slices.Equal(n.ChildTabIDs, p.ChildTabIDs.Value) {
			return false
		}
		n.ChildTabIDs = slices.Clone(p.ChildTabIDs.Value)
		if n.ChildTabIDs == nil {
			n.ChildTabIDs = []TabID{}
		}
		return true
	}},
	{FieldPosition, func(n *TabNode, p Patch) bool { return assign(&n.Position, p.Position) }},
}

// Merge applies p to n under policy and returns the fields whose value
// actually changed, in a fixed order. An empty result means n is unchanged.
func Merge(n *TabNode, p Patch, policy MergePolicy) []Field {
	var changed []Field
	for _, m := range mergeOrder {
		if policy[m.field] != Overwrite {
			continue
		}
		if m.apply(n, p) {
			changed = append(changed, m.field)
		}
	}
	return changed
}

func assign[T comparable](dst *T, o Opt[T]) bool {
	if !o.Set || *dst == o.Value {
		return false
	}
	*dst = o.Value
	return true
}
