package onchain

import "math/big"

// overflow is the panic value raised by the checked helpers below. It is
// recovered at the exported boundary and reported as ErrArithmetic.
type overflow string

// maxUint is the largest contract uint, 2^128 - 1. Intermediate products
// are carried at this width; only results are narrowed to uint64.
var maxUint = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

func u(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

func checked(v *big.Int, op string) *big.Int {
	if v.Sign() < 0 || v.Cmp(maxUint) > 0 {
		panic(overflow(op))
	}
	return v
}

func add(a, b *big.Int) *big.Int { return checked(new(big.Int).Add(a, b), "add") }

func sub(a, b *big.Int) *big.Int { return checked(new(big.Int).Sub(a, b), "sub") }

func mul(a, b *big.Int) *big.Int { return checked(new(big.Int).Mul(a, b), "mul") }

func div(a, b *big.Int) *big.Int {
	if b.Sign() == 0 {
		panic(overflow("div"))
	}
	return new(big.Int).Quo(a, b)
}

// isqrt is the contract's integer square root: Newton iteration from
// (n+1)/2, stopping once the guess no longer falls. It returns floor(sqrt(n)).
func isqrt(n *big.Int) *big.Int {
	if n.Sign() == 0 {
		return new(big.Int)
	}
	two := big.NewInt(2)
	step := func(x *big.Int) *big.Int {
		next := new(big.Int).Quo(n, x)
		return next.Add(next, x).Quo(next, two)
	}
	guess := new(big.Int).Add(n, big.NewInt(1))
	guess.Quo(guess, two)
	if x1 := step(guess); x1.Cmp(guess) <= 0 {
		guess = x1
	}
	for {
		next := step(guess)
		if next.Cmp(guess) >= 0 {
			return guess
		}
		guess = next
	}
}

// SqrtInt is isqrt for a uint64.
func SqrtInt(n uint64) uint64 { return isqrt(u(n)).Uint64() }

// narrow returns v as a uint64 amount.
func narrow(v *big.Int) uint64 {
	if !v.IsUint64() {
		panic(overflow("narrow"))
	}
	return v.Uint64()
}

// guard turns an overflow panic into ErrArithmetic. Any other panic is
// re-raised.
func guard(err *error) {
	if r := recover(); r != nil {
		if _, ok := r.(overflow); !ok {
			panic(r)
		}
		*err = ErrArithmetic
	}
}
