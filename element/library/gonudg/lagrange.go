package gonudg

import "fmt"

// Lagrange1D is the nodal Lagrange basis on a set of distinct 1D nodes,
// evaluated in barycentric form.
type Lagrange1D struct {
	Nodes []float64
	w     []float64
}

// NewLagrange1D builds the basis for the given nodes. Repeated nodes panic.
func NewLagrange1D(nodes []float64) *Lagrange1D {
	n := len(nodes)
	l := &Lagrange1D{Nodes: append([]float64(nil), nodes...), w: make([]float64, n)}
	for j := 0; j < n; j++ {
		w := 1.0
		for k := 0; k < n; k++ {
			if k == j {
				continue
			}
			d := nodes[j] - nodes[k]
			if d == 0 {
				panic(fmt.Sprintf("gonudg: repeated Lagrange node %v", nodes[j]))
			}
			w *= d
		}
		l.w[j] = 1 / w
	}
	return l
}

// N returns the number of basis functions.
func (l *Lagrange1D) N() int { return len(l.Nodes) }

// Eval writes l_j(x) for every j into out.
func (l *Lagrange1D) Eval(x float64, out []float64) {
	for j, xj := range l.Nodes {
		if x == xj {
			for k := range l.Nodes {
				out[k] = 0
			}
			out[j] = 1
			return
		}
	}
	var sum float64
	for j, xj := range l.Nodes {
		out[j] = l.w[j] / (x - xj)
		sum += out[j]
	}
	for j := range l.Nodes {
		out[j] /= sum
	}
}

// Deriv writes l'_j(x) for every j into out. It uses the product rule form,
// which is exact at the nodes.
func (l *Lagrange1D) Deriv(x float64, out []float64) {
	n := len(l.Nodes)
	for j := 0; j < n; j++ {
		var sum float64
		for m := 0; m < n; m++ {
			if m == j {
				continue
			}
			p := l.w[j]
			for k := 0; k < n; k++ {
				if k == j || k == m {
					continue
				}
				p *= x - l.Nodes[k]
			}
			sum += p
		}
		out[j] = sum
	}
}
