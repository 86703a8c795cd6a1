package render

// HalfBlock returns the character that shows two vertically stacked pixels in
// one terminal cell, drawn in the foreground color over a default background.
func HalfBlock(top, bottom bool) rune {
	switch {
	case top && bottom:
		return '█'
	case top:
		return '▀'
	case bottom:
		return '▄'
	default:
		return ' '
	}
}
