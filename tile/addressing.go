package tile

// Index returns the index of the tile containing coordinate along an axis
// whose tiles are stride pixels wide. It is floor(coordinate / stride),
// correct for negative coordinates. stride must be positive.
func Index(coordinate, stride int) int {
	if coordinate >= 0 {
		return coordinate / stride
	}
	return (coordinate+1)/stride - 1
}

// Offset returns the position of coordinate inside its tile, always in
// [0, stride) including for negative coordinates.
func Offset(coordinate, stride int) int {
	r := coordinate % stride
	if r < 0 {
		r += stride
	}
	return r
}

// Needed returns how many tiles of size stride are needed to cover extent
// pixels, ceil(extent / stride). Non-positive extents need no tiles.
func Needed(extent, stride int) int {
	if extent <= 0 {
		return 0
	}
	return (extent + stride - 1) / stride
}

// NeededExtent returns the pixel extent of the tiles needed to cover extent,
// a multiple of stride.
func NeededExtent(extent, stride int) int {
	return Needed(extent, stride) * stride
}
