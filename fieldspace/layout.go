package fieldspace

import (
	"fmt"
	"strings"
)

// Kind identifies how a field component maps between the reference and the
// physical element. It is fixed when a Layout is built and never changes.
type Kind uint8

const (
	H1    Kind = iota // value + gradient, gradient pulled back with J^-1
	L2                // value only, passes through unchanged
	HDiv              // vector value + divergence, contravariant Piola
	HCurl             // vector value + curl, covariant Piola
)

func (k Kind) String() string {
	switch k {
	case H1:
		return "H1"
	case L2:
		return "L2"
	case HDiv:
		return "H(div)"
	case HCurl:
		return "H(curl)"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Component describes one entry of a field-space record.
//
// NComp is the number of value components for H1 and L2 fields. HDiv and
// HCurl fields always carry Dim value components and NComp is ignored.
type Component struct {
	Kind  Kind
	NComp int
}

// Layout is the static descriptor of a field-space record: the ordered list
// of components, their storage offsets and the spatial dimension. Layouts are
// immutable and shared by every record built from them.
type Layout struct {
	dim     int
	comps   []Component
	offsets []int
	size    int
}

// NewLayout builds a layout for a record of the given components in dim
// spatial dimensions. A layout with no components is valid and describes an
// empty record (for instance a problem without material data).
func NewLayout(dim int, comps ...Component) *Layout {
	if dim < 1 || dim > 3 {
		panic(fmt.Sprintf("fieldspace: unsupported dimension %d", dim))
	}
	l := &Layout{
		dim:     dim,
		comps:   make([]Component, len(comps)),
		offsets: make([]int, len(comps)+1),
	}
	for c, comp := range comps {
		switch comp.Kind {
		case HDiv, HCurl:
			comp.NComp = dim
		default:
			if comp.NComp < 1 {
				panic(fmt.Sprintf("fieldspace: component %d of kind %v needs NComp >= 1", c, comp.Kind))
			}
		}
		l.comps[c] = comp
		l.offsets[c+1] = l.offsets[c] + componentSize(dim, comp)
	}
	l.size = l.offsets[len(comps)]
	return l
}

func componentSize(dim int, comp Component) int {
	switch comp.Kind {
	case H1:
		return comp.NComp * (1 + dim)
	case L2:
		return comp.NComp
	case HDiv:
		return dim + 1
	case HCurl:
		return dim + curlSize(dim)
	default:
		panic(fmt.Sprintf("fieldspace: unknown kind %v", comp.Kind))
	}
}

func curlSize(dim int) int {
	if dim == 3 {
		return 3
	}
	return 1
}

// Dim returns the spatial dimension.
func (l *Layout) Dim() int { return l.dim }

// NumComponents returns the number of components in the record.
func (l *Layout) NumComponents() int { return len(l.comps) }

// Component returns the descriptor of component c.
func (l *Layout) Component(c int) Component { return l.comps[c] }

// Size is the flattened number of scalar entries in a record (ncomp).
func (l *Layout) Size() int { return l.size }

// Offset returns the flat offset of component c.
func (l *Layout) Offset(c int) int { return l.offsets[c] }

// ComponentSize returns the number of flat entries of component c.
func (l *Layout) ComponentSize(c int) int { return l.offsets[c+1] - l.offsets[c] }

// Equal reports whether two layouts describe the same record structure.
func (l *Layout) Equal(o *Layout) bool {
	if l == o {
		return true
	}
	if l == nil || o == nil || l.dim != o.dim || len(l.comps) != len(o.comps) {
		return false
	}
	for c := range l.comps {
		if l.comps[c] != o.comps[c] {
			return false
		}
	}
	return true
}

func (l *Layout) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Layout{dim=%d", l.dim))
	for _, comp := range l.comps {
		sb.WriteString(fmt.Sprintf(", %v[%d]", comp.Kind, comp.NComp))
	}
	sb.WriteString("}")
	return sb.String()
}
