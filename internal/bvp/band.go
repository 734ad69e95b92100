package bvp

import (
	"fmt"
	"math"
)

// Band is an n×n matrix with kl sub- and ku super-diagonals, stored by rows
// with room for the kl extra super-diagonals that partial pivoting fills in.
// Row i holds columns [i-kl, i+ku+kl].
type Band struct {
	n, kl, ku int
	width     int
	data      []float64
	piv       []int
	factored  bool
}

func NewBand(n, kl, ku int) *Band {
	w := 2*kl + ku + 1
	return &Band{
		n:     n,
		kl:    kl,
		ku:    ku,
		width: w,
		data:  make([]float64, n*w),
		piv:   make([]int, n),
	}
}

func (b *Band) Dims() (n, kl, ku int) { return b.n, b.kl, b.ku }

func (b *Band) index(i, j int) (int, bool) {
	off := j - i + b.kl
	if i < 0 || i >= b.n || j < 0 || j >= b.n || off < 0 || off >= b.width {
		return 0, false
	}
	return i*b.width + off, true
}

func (b *Band) At(i, j int) float64 {
	k, ok := b.index(i, j)
	if !ok {
		return 0
	}
	return b.data[k]
}

// Set panics outside the declared band, like an out-of-range slice index.
func (b *Band) Set(i, j int, v float64) {
	if j-i > b.ku || i-j > b.kl {
		panic(fmt.Sprintf("bvp: band set (%d,%d) outside kl=%d ku=%d", i, j, b.kl, b.ku))
	}
	k, ok := b.index(i, j)
	if !ok {
		panic(fmt.Sprintf("bvp: band index (%d,%d) out of range", i, j))
	}
	b.data[k] = v
}

func (b *Band) Add(i, j int, v float64) {
	b.Set(i, j, b.At(i, j)+v)
}

func (b *Band) Zero() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.factored = false
}

// Factor computes the LU factorisation with partial pivoting in place.
func (b *Band) Factor() error {
	n, kl, ku := b.n, b.kl, b.ku
	for k := 0; k < n; k++ {
		last := min(n-1, k+kl)
		p := k
		pmax := math.Abs(b.At(k, k))
		for i := k + 1; i <= last; i++ {
			if v := math.Abs(b.At(i, k)); v > pmax {
				p, pmax = i, v
			}
		}
		if pmax == 0 || math.IsNaN(pmax) {
			return fmt.Errorf("%w: zero pivot in column %d", ErrSingularMatrix, k)
		}
		b.piv[k] = p

		right := min(n-1, k+ku+kl)
		if p != k {
			for j := k; j <= right; j++ {
				ik, _ := b.index(k, j)
				ip, _ := b.index(p, j)
				b.data[ik], b.data[ip] = b.data[ip], b.data[ik]
			}
		}

		kk, _ := b.index(k, k)
		pivot := b.data[kk]
		for i := k + 1; i <= last; i++ {
			ik, _ := b.index(i, k)
			m := b.data[ik] / pivot
			b.data[ik] = m
			if m == 0 {
				continue
			}
			for j := k + 1; j <= right; j++ {
				ij, _ := b.index(i, j)
				kj, _ := b.index(k, j)
				b.data[ij] -= m * b.data[kj]
			}
		}
	}
	b.factored = true
	return nil
}

// Solve overwrites rhs with the solution of A x = rhs. Factor must have
// been called.
func (b *Band) Solve(rhs []float64) error {
	if !b.factored {
		return fmt.Errorf("bvp: band solve before factorisation")
	}
	if len(rhs) != b.n {
		return fmt.Errorf("bvp: rhs length %d, want %d", len(rhs), b.n)
	}
	n, kl, ku := b.n, b.kl, b.ku

	for k := 0; k < n; k++ {
		if p := b.piv[k]; p != k {
			rhs[k], rhs[p] = rhs[p], rhs[k]
		}
		last := min(n-1, k+kl)
		for i := k + 1; i <= last; i++ {
			rhs[i] -= b.At(i, k) * rhs[k]
		}
	}

	for i := n - 1; i >= 0; i-- {
		sum := rhs[i]
		right := min(n-1, i+ku+kl)
		for j := i + 1; j <= right; j++ {
			sum -= b.At(i, j) * rhs[j]
		}
		rhs[i] = sum / b.At(i, i)
	}
	return nil
}
