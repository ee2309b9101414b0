package grid

// GetGridCoords converts a linear index into (x, y) coordinates on a grid
// that is cols cells wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}
