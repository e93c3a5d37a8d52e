// Package resize reconciles the extent of an existing dataset with incoming
// data and an active selection.
//
// Reconcile is pure: it returns a [Decision] and never touches storage.
// The caller applies the new extent in one step together with the byte
// bookkeeping that depends on it.
package resize

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// Policy controls how an existing extent follows incoming data.
type Policy uint8

const (
	Default Policy = iota // Unset; resolved by EffectivePolicy
	Fit                   // Match the incoming shape exactly, growing or shrinking
	Grow                  // Only grow axes that are too small
	Off                   // Never resize
)

var policyNames = [...]string{"default", "fit", "grow", "off"}

func (p Policy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// ParsePolicy parses a policy name. The empty string is Default.
func ParsePolicy(name string) (Policy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return Default, nil
	}
	for i, s := range policyNames {
		if s == n {
			return Policy(i), nil
		}
	}
	return Default, h5err.New(h5err.InvalidConfig, "unknown resize policy %q", name)
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// EffectivePolicy resolves the policy in force: the requested one, else the
// one stored with the dataset, else Grow when a selection is active on the
// dataset, else Fit. Grow protects the regions around a selection from
// being cut away when the incoming data is smaller than the dataset.
func EffectivePolicy(requested, stored Policy, selectionActive bool) Policy {
	switch {
	case requested != Default:
		return requested
	case stored != Default:
		return stored
	case selectionActive:
		return Grow
	default:
		return Fit
	}
}

// Input is everything Reconcile looks at.
type Input struct {
	Path      string
	Existing  []uint64 // Current extent
	MaxDims   []uint64 // nil means bounded by Existing
	Incoming  []uint64 // Extent the data needs
	Layout    layout.Class
	Requested Policy
	Stored    Policy
	Selection *space.Hyperslab // Active selection on the dataset, if any
	VarLen    bool             // Variable-length string data
}

// Decision is the outcome of Reconcile.
type Decision struct {
	Policy   Policy
	Resize   bool
	NewDims  []uint64 // Extent after the decision; equals Existing when Resize is false
	Warnings []string
}

func keep(p Policy, existing []uint64) Decision {
	return Decision{Policy: p, NewDims: space.Clone(existing)}
}

// Reconcile decides whether and how an existing extent changes for the
// incoming shape. It has no hidden state: equal inputs give equal decisions.
func Reconcile(in Input) (Decision, error) {
	policy := EffectivePolicy(in.Requested, in.Stored, in.Selection != nil)
	d, err := reconcile(in, policy)
	if err != nil {
		return Decision{}, h5err.WithPath(err, in.Path)
	}
	return d, nil
}

func reconcile(in Input, policy Policy) (Decision, error) {
	if policy == Off {
		if !fits(in.Incoming, in.Existing) {
			return Decision{}, h5err.New(h5err.DimensionMismatch,
				"resize policy is off and incoming dimensions %s do not fit the dataset dimensions %s",
				space.Format(in.Incoming), space.Format(in.Existing))
		}
		return keep(policy, in.Existing), nil
	}
	if len(in.Existing) == 0 || in.VarLen && len(in.Incoming) == 0 {
		return keep(policy, in.Existing), nil
	}
	if len(in.Existing) != len(in.Incoming) {
		return Decision{}, h5err.New(h5err.RankMismatch,
			"could not resize: dataset dimensions %s and new dimensions %s have different ranks",
			space.Format(in.Existing), space.Format(in.Incoming))
	}
	if space.Equal(in.Existing, in.Incoming) {
		return keep(policy, in.Existing), nil
	}

	newDims := space.Clone(in.Incoming)
	if policy == Grow {
		for i := range newDims {
			newDims[i] = max(newDims[i], in.Existing[i])
		}
		if space.Equal(newDims, in.Existing) {
			return keep(policy, in.Existing), nil
		}
	}

	if in.Layout != layout.Chunked {
		return Decision{}, h5err.New(h5err.ResizeNotSupported,
			"datasets with %s layout cannot be resized from %s to %s",
			in.Layout, space.Format(in.Existing), space.Format(newDims))
	}
	bound := in.MaxDims
	if bound == nil {
		bound = in.Existing
	}
	if err := space.CheckBounds(newDims, bound); err != nil {
		return Decision{}, fmt.Errorf("could not resize: %w", err)
	}

	d := Decision{Policy: policy, Resize: true, NewDims: newDims}
	if policy == Fit && in.Selection != nil {
		ub := in.Selection.UpperBounds()
		for i := range newDims {
			if i < len(ub) && newDims[i] < ub[i] {
				d.Warnings = append(d.Warnings, fmt.Sprintf(
					"a hyperslab selection %s is active on the dataset, but resize policy fit shrinks it to %s; this is likely an error",
					in.Selection, space.Format(newDims)))
				break
			}
		}
	}
	return d, nil
}

func fits(incoming, existing []uint64) bool {
	if len(incoming) != len(existing) {
		return len(existing) == 0 && space.Size(incoming) == 1
	}
	for i := range incoming {
		if incoming[i] > existing[i] {
			return false
		}
	}
	return true
}

// IncomingDims derives the extent a write needs: the data slab's shape when
// given, else the data dims, raised per axis to cover the dataset slab.
func IncomingDims(dataDims []uint64, dataSlab, dsetSlab *space.Hyperslab) ([]uint64, error) {
	incoming := space.Clone(dataDims)
	if dataSlab != nil && !dataSlab.IsEmpty() {
		incoming = dataSlab.Shape()
	}
	if dsetSlab == nil || dsetSlab.IsEmpty() {
		return incoming, nil
	}
	if dsetSlab.Rank() != len(incoming) {
		return nil, h5err.New(h5err.RankMismatch,
			"data dimensions %s and dataset selection %s have different ranks", space.Format(incoming), dsetSlab)
	}
	for i, ub := range dsetSlab.UpperBounds() {
		incoming[i] = max(incoming[i], ub)
	}
	return incoming, nil
}
