package contour

import "image"

// Neighbour offsets, clockwise on screen starting east (Y grows downward).
var (
	dirX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	dirY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// direction returns the neighbour index of (x,y) relative to (cx,cy).
func direction(cx, cy, x, y int) int {
	dx, dy := x-cx, y-cy
	for d := 0; d < 8; d++ {
		if dirX[d] == dx && dirY[d] == dy {
			return d
		}
	}
	return 0
}

// border is bookkeeping for one traced border, indexed by its sequence number.
type border struct {
	hole   bool
	parent int // sequence number of the parent border; 1 is the image frame
	points []image.Point
}

// Extract traces all borders of the non-zero regions in binary.
//
// Parameters:
//   - binary: Mask where any non-zero pixel is foreground.
//   - mode: External, List or Tree.
//
// Returns the contours in discovery order. An image without foreground yields
// an empty, non-nil slice.
func Extract(binary *image.Gray, mode RetrievalMode) []Contour {
	borders := traceBorders(binary)

	out := make([]Contour, 0, len(borders))
	index := make(map[int]int, len(borders)) // sequence number -> output index

	for i, b := range borders {
		nbd := i + 2
		if mode == External && (b.hole || b.parent != 1) {
			continue
		}
		index[nbd] = len(out)
		out = append(out, Contour{Points: b.points, Parent: -1, Hole: b.hole})
	}

	if mode == Tree {
		for i, b := range borders {
			if b.parent <= 1 {
				continue
			}
			out[index[i+2]].Parent = index[b.parent]
		}
	}

	return out
}

// traceBorders runs Suzuki-Abe border following over a zero-padded copy of
// binary. Border sequence numbers start at 2; the frame is 1. The returned
// slice is indexed by sequence number minus 2.
func traceBorders(binary *image.Gray) []border {
	b := binary.Bounds()
	w, h := b.Dx()+2, b.Dy()+2

	f := make([]int, w*h)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if binary.GrayAt(b.Min.X+x, b.Min.Y+y).Y != 0 {
				f[(y+1)*w+x+1] = 1
			}
		}
	}
	at := func(x, y int) int { return f[y*w+x] }

	// info[n] describes border n; entries 0 and 1 are the unused slot and the frame.
	info := []border{{}, {hole: true}}
	nbd := 1

	for y := 1; y < h-1; y++ {
		lnbd := 1
		for x := 1; x < w-1; x++ {
			v := at(x, y)
			var fromX, fromY int
			var hole bool

			switch {
			case v == 1 && at(x-1, y) == 0:
				fromX, fromY = x-1, y
			case v >= 1 && at(x+1, y) == 0:
				fromX, fromY = x+1, y
				hole = true
				if v > 1 {
					lnbd = v
				}
			default:
				if v != 0 && v != 1 {
					lnbd = abs(v)
				}
				continue
			}

			nbd++
			parent := lnbd
			if hole == info[lnbd].hole {
				parent = info[lnbd].parent
			}
			pts := follow(f, w, x, y, fromX, fromY, nbd)
			info = append(info, border{hole: hole, parent: parent, points: pts})

			if v := at(x, y); v != 1 {
				lnbd = abs(v)
			}
		}
	}

	return info[2:]
}

// follow traces one border starting at (x,y), whose zero neighbour (fromX,fromY)
// triggered the start. It labels visited pixels with nbd (or -nbd on the
// right-hand edge of a region) and returns the border points shifted back to
// unpadded coordinates.
func follow(f []int, w, x, y, fromX, fromY, nbd int) []image.Point {
	at := func(px, py int) int { return f[py*w+px] }
	unpad := func(px, py int) image.Point { return image.Pt(px-1, py-1) }

	// Clockwise search for the first non-zero neighbour.
	start := direction(x, y, fromX, fromY)
	x1, y1 := -1, -1
	for k := 0; k < 8; k++ {
		d := (start + k) % 8
		if at(x+dirX[d], y+dirY[d]) != 0 {
			x1, y1 = x+dirX[d], y+dirY[d]
			break
		}
	}
	if x1 < 0 {
		f[y*w+x] = -nbd
		return []image.Point{unpad(x, y)}
	}

	var pts []image.Point
	x2, y2 := x1, y1
	x3, y3 := x, y
	for {
		// Counter-clockwise search around (x3,y3), starting just after (x2,y2).
		d0 := direction(x3, y3, x2, y2)
		eastZero := false
		x4, y4 := x3, y3
		for k := 1; k <= 8; k++ {
			d := ((d0-k)%8 + 8) % 8
			nx, ny := x3+dirX[d], y3+dirY[d]
			if at(nx, ny) != 0 {
				x4, y4 = nx, ny
				break
			}
			if d == 0 {
				eastZero = true
			}
		}

		if eastZero {
			f[y3*w+x3] = -nbd
		} else if at(x3, y3) == 1 {
			f[y3*w+x3] = nbd
		}
		pts = append(pts, unpad(x3, y3))

		if x4 == x && y4 == y && x3 == x1 && y3 == y1 {
			return pts
		}
		x2, y2 = x3, y3
		x3, y3 = x4, y4
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
