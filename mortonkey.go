package mortontable

import "math/bits"

// Key is the Morton code of a Point: 15 bits of x and 15 bits of y with their
// bits interleaved, x on the even positions and y on the odd ones. Sorting
// points by Key lays them out along a Z-order curve, which keeps points that
// are close in the plane mostly close in the sorted order.
type Key uint32

// maxCoord is the largest coordinate a Key can encode.
const maxCoord = 1<<15 - 1

// mortonDomain is the region MortonTable accepts positions in.
var mortonDomain = Rect(0, 0, maxCoord, maxCoord)

// MakeKey returns the Key encoding p. Coordinate bits beyond the low 15 are
// dropped.
func MakeKey(p Point) Key {
	return Key(spread(uint32(p.X)&maxCoord) | spread(uint32(p.Y)&maxCoord)<<1)
}

// Point reconstructs the position k encodes.
func (k Key) Point() Point {
	return Pt(int32(squash(uint32(k))), int32(squash(uint32(k)>>1)))
}

// spread spaces the low 16 bits of x over the even bit positions.
func spread(x uint32) uint32 {
	x = (x | (x << 8)) & 0x00FF00FF
	x = (x | (x << 4)) & 0x0F0F0F0F
	x = (x | (x << 2)) & 0x33333333
	x = (x | (x << 1)) & 0x55555555
	return x
}

// squash collects the even bit positions of x back into its low 16 bits,
// reversing spread.
func squash(x uint32) uint32 {
	x &= 0x55555555
	x = (x | (x >> 1)) & 0x33333333
	x = (x | (x >> 2)) & 0x0F0F0F0F
	x = (x | (x >> 4)) & 0x00FF00FF
	x = (x | (x >> 8)) & 0x0000FFFF
	return x
}

// litmaxBigmin splits the key range [min, max], which covers the rectangle
// with corners pmin and pmax, into two halves whose key ranges exclude the
// stretch of dead keys between them. litmax is the maximum corner key of the
// lower half and bigmin the minimum corner key of the upper half, so callers
// recurse on [min, litmax] and [bigmin, max]. The corner positions are passed
// in so callers can reuse cached positions instead of decoding the keys
// again. Requires min < max.
//
// See Tropf and Herzog, "Multidimensional Range Search in Dynamically
// Balanced Trees" (1981).
func litmaxBigmin(min Key, pmin Point, max Key, pmax Point) (litmax, bigmin Key) {
	// cut the rectangle on the axis owning the most significant differing
	// bit; even bits belong to x
	diff := uint32(min) ^ uint32(max)
	msb := uint32(bits.Len32(diff) - 1)
	if msb&1 == 0 {
		xl, xb := axisSplit(uint32(pmin.X), uint32(pmax.X), msb/2)
		return MakeKey(Pt(int32(xl), pmax.Y)), MakeKey(Pt(int32(xb), pmin.Y))
	}
	yl, yb := axisSplit(uint32(pmin.Y), uint32(pmax.Y), msb/2)
	return MakeKey(Pt(pmax.X, int32(yl))), MakeKey(Pt(pmin.X, int32(yb)))
}

// axisSplit cuts [a, b] at bit d, the most significant bit differing between
// a and b, returning the largest value of the lower half and the smallest
// value of the upper half.
func axisSplit(a, b, d uint32) (uint32, uint32) {
	hi := uint32(1) << d
	lo := hi - 1
	z := a & b &^ lo
	return z | lo, z | hi
}
