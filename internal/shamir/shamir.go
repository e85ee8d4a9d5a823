// Package shamir implements T-of-N secret sharing over the BLS12-381 scalar
// field. Secrets are scalars; shares are evaluations of a random polynomial
// whose free term is the secret, and reconstruction is Lagrange interpolation
// with exact modular arithmetic.
package shamir

import (
	"errors"
	"io"

	bls "github.com/cloudflare/circl/ecc/bls12381"
)

// ErrDuplicateShare is returned when two shares claim the same evaluation
// point.
var ErrDuplicateShare = errors.New("duplicate share")

// Share is a single polynomial evaluation at a nonzero point.
type Share struct {
	X uint8
	Y *bls.Scalar
}

// Polynomial is a polynomial over the scalar field, held as coefficients in
// ascending degree order.
type Polynomial struct {
	coeffs []bls.Scalar
}

// NewPolynomial returns a polynomial of the given degree with the given free
// term and uniformly random remaining coefficients.
func NewPolynomial(rand io.Reader, degree int, free *bls.Scalar) (*Polynomial, error) {
	p := &Polynomial{coeffs: make([]bls.Scalar, degree+1)}
	p.coeffs[0] = *free

	for i := 1; i <= degree; i++ {
		if err := p.coeffs[i].Random(rand); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Eval evaluates the polynomial at the given point using Horner's rule.
func (p *Polynomial) Eval(x uint8) *bls.Scalar {
	xs := scalarFromUint8(x)

	y := new(bls.Scalar)
	*y = p.coeffs[len(p.coeffs)-1]

	for i := len(p.coeffs) - 2; i >= 0; i-- {
		y.Mul(y, xs)
		y.Add(y, &p.coeffs[i])
	}

	return y
}

// Interpolate evaluates, at the given point, the unique polynomial of degree
// len(shares)-1 passing through all shares. Reconstructing the shared secret
// is interpolation at x=0; interpolation at other points recovers the other
// servers' shares.
func Interpolate(x uint8, shares []Share) (*bls.Scalar, error) {
	seen := make(map[uint8]struct{}, len(shares))
	for _, s := range shares {
		if _, ok := seen[s.X]; ok {
			return nil, ErrDuplicateShare
		}

		seen[s.X] = struct{}{}
	}

	xt := scalarFromUint8(x)

	sum := new(bls.Scalar)
	sum.SetUint64(0)

	for i := range shares {
		// l_i(x) = Π_{j≠i} (x - x_j) / (x_i - x_j)
		num := scalarFromUint8(1)
		den := scalarFromUint8(1)
		xi := scalarFromUint8(shares[i].X)

		for j := range shares {
			if j == i {
				continue
			}

			xj := scalarFromUint8(shares[j].X)

			d := new(bls.Scalar)
			d.Sub(xt, xj)
			num.Mul(num, d)

			d.Sub(xi, xj)
			den.Mul(den, d)
		}

		den.Inv(den)

		term := new(bls.Scalar)
		term.Mul(num, den)
		term.Mul(term, shares[i].Y)
		sum.Add(sum, term)
	}

	return sum, nil
}

// RandomScalar returns a uniformly random nonzero scalar. The distributions
// over Zp and Zp* are within negligible statistical distance, but a zero
// secret or mask would be degenerate, so zero draws are rejected.
func RandomScalar(rand io.Reader) (*bls.Scalar, error) {
	var zero bls.Scalar
	zero.SetUint64(0)

	for {
		s := new(bls.Scalar)
		if err := s.Random(rand); err != nil {
			return nil, err
		}

		if s.IsEqual(&zero) == 0 {
			return s, nil
		}
	}
}

func scalarFromUint8(x uint8) *bls.Scalar {
	s := new(bls.Scalar)
	s.SetUint64(uint64(x))

	return s
}
