package amm

import (
	"math"
	"math/big"
)

// All pricing intermediates are bounded to 128 bits. Inputs are u64, so a
// single product always fits, but every step is still checked so a future
// change cannot silently wrap.
var maxUint64Big = new(big.Int).SetUint64(math.MaxUint64)

func fitsUint128(x *big.Int) bool {
	return x.BitLen() <= 128
}

// SwapOutput computes the constant-product output for amountIn against the
// given reserves, with the pool fee discounted from the input before it
// enters the curve. Division truncates. Returns ErrCalculationOverflow if
// any intermediate leaves the 128-bit range or the result does not fit u64.
func SwapOutput(amountIn, reserveIn, reserveOut, feeNumerator, feeDenominator uint64) (uint64, error) {
	if feeDenominator == 0 || feeNumerator >= feeDenominator {
		return 0, ErrInvalidFee
	}
	if amountIn == 0 {
		return 0, ErrZeroAmount
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, ErrPoolIsEmpty
	}

	// amountInAfterFee = amountIn * (feeDenominator - feeNumerator) / feeDenominator
	afterFee := new(big.Int).SetUint64(amountIn)
	afterFee.Mul(afterFee, new(big.Int).SetUint64(feeDenominator-feeNumerator))
	if !fitsUint128(afterFee) {
		return 0, ErrCalculationOverflow
	}
	afterFee.Div(afterFee, new(big.Int).SetUint64(feeDenominator))

	// k = reserveIn * reserveOut
	k := new(big.Int).Mul(
		new(big.Int).SetUint64(reserveIn),
		new(big.Int).SetUint64(reserveOut),
	)
	if !fitsUint128(k) {
		return 0, ErrCalculationOverflow
	}

	// newReserveIn = reserveIn + amountInAfterFee
	newReserveIn := new(big.Int).Add(new(big.Int).SetUint64(reserveIn), afterFee)
	if !fitsUint128(newReserveIn) || newReserveIn.Sign() == 0 {
		return 0, ErrCalculationOverflow
	}

	// newReserveOut = k / newReserveIn, truncating
	newReserveOut := new(big.Int).Div(k, newReserveIn)

	// amountOut = reserveOut - newReserveOut
	amountOut := new(big.Int).Sub(new(big.Int).SetUint64(reserveOut), newReserveOut)
	if amountOut.Sign() < 0 || !amountOut.IsUint64() {
		return 0, ErrCalculationOverflow
	}

	// The vault receives the full amountIn, fee included. Reject swaps the
	// vault balance could not represent.
	if amountIn > math.MaxUint64-reserveIn {
		return 0, ErrCalculationOverflow
	}

	return amountOut.Uint64(), nil
}

// PriceImpactBps returns how much of the output reserve a swap consumes,
// in truncating basis points against the pre-swap reserve.
func PriceImpactBps(amountOut, reserveOut uint64) (uint16, error) {
	if reserveOut == 0 {
		return 0, ErrPoolIsEmpty
	}
	impact := new(big.Int).SetUint64(amountOut)
	impact.Mul(impact, big.NewInt(10000))
	if !fitsUint128(impact) {
		return 0, ErrCalculationOverflow
	}
	impact.Div(impact, new(big.Int).SetUint64(reserveOut))
	if impact.Cmp(big.NewInt(10000)) > 0 {
		// amountOut can never exceed reserveOut
		return 0, ErrCalculationOverflow
	}
	return uint16(impact.Uint64()), nil
}

// ExpectedCounterAmount scales a low-side deposit to the high side by the
// current reserve ratio: amountLow * reserveHigh / reserveLow, truncating.
func ExpectedCounterAmount(amountLow, reserveLow, reserveHigh uint64) (uint64, error) {
	if reserveLow == 0 {
		return 0, ErrPoolIsEmpty
	}
	expected := new(big.Int).SetUint64(amountLow)
	expected.Mul(expected, new(big.Int).SetUint64(reserveHigh))
	if !fitsUint128(expected) {
		return 0, ErrCalculationOverflow
	}
	expected.Div(expected, new(big.Int).SetUint64(reserveLow))
	if !expected.IsUint64() {
		return 0, ErrCalculationOverflow
	}
	return expected.Uint64(), nil
}

// ToleranceBand returns the inclusive [min, max] band around expected,
// toleranceBps wide on each side. The edges saturate at u64 bounds rather
// than failing, matching the deposit validator's behavior.
func ToleranceBand(expected uint64, toleranceBps uint16) (uint64, uint64) {
	lo := new(big.Int).SetUint64(expected)
	lo.Mul(lo, big.NewInt(int64(10000-uint64(toleranceBps))))
	lo.Div(lo, big.NewInt(10000))

	hi := new(big.Int).SetUint64(expected)
	hi.Mul(hi, big.NewInt(int64(10000+uint64(toleranceBps))))
	hi.Div(hi, big.NewInt(10000))
	if hi.Cmp(maxUint64Big) > 0 {
		hi.Set(maxUint64Big)
	}

	return lo.Uint64(), hi.Uint64()
}

// ApplySlippage converts a quoted output into a minimum acceptable output.
// slippageBps >= 10000 means any output is acceptable.
func ApplySlippage(amountOut uint64, slippageBps uint16) uint64 {
	if slippageBps >= 10000 {
		return 0
	}
	minOut := new(big.Int).SetUint64(amountOut)
	minOut.Mul(minOut, big.NewInt(int64(10000-uint64(slippageBps))))
	minOut.Div(minOut, big.NewInt(10000))
	return minOut.Uint64()
}

// FeeBps converts a fee numerator/denominator to basis points for display.
func FeeBps(feeNumerator, feeDenominator uint64) uint16 {
	if feeDenominator == 0 {
		return 0
	}
	return uint16((feeNumerator * 10000) / feeDenominator)
}
