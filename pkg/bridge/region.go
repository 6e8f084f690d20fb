package bridge

import (
	"cortexgeom/internal/models"
)

// capFaces returns the indices of the outer-shell faces enclosed by ring.
//
// Faces are grouped into regions by flood fill across edges that are not
// part of the ring. Of the regions bordering the ring, the one with the
// fewest faces is the cap; equal sizes resolve to the region found first.
func capFaces(outer *models.Mesh, ring []int) ([]int, error) {
	cut := make(map[models.Edge]bool, len(ring))
	for i, a := range ring {
		cut[models.NewEdge(a, ring[(i+1)%len(ring)])] = true
	}

	edgeFaces := make(map[models.Edge][]int, len(outer.Faces)*3/2)
	for fi, f := range outer.Faces {
		for j := 0; j < 3; j++ {
			if f[j] == f[(j+1)%3] {
				continue
			}
			e := models.NewEdge(f[j], f[(j+1)%3])
			edgeFaces[e] = append(edgeFaces[e], fi)
		}
	}

	region := make([]int, len(outer.Faces))
	for i := range region {
		region[i] = -1
	}

	var regions [][]int
	var borders []bool
	for seed := range outer.Faces {
		if region[seed] >= 0 {
			continue
		}
		id := len(regions)
		members, border := floodFill(outer.Faces, seed, id, region, edgeFaces, cut)
		regions = append(regions, members)
		borders = append(borders, border)
	}

	best := -1
	bordering := 0
	for id, members := range regions {
		if !borders[id] {
			continue
		}
		bordering++
		if best < 0 || len(members) < len(regions[best]) {
			best = id
		}
	}
	if bordering < 2 {
		return nil, ErrLoopNotSeparating
	}
	return regions[best], nil
}

// floodFill labels every face reachable from seed without crossing a cut
// edge and reports whether the region touches the cut
func floodFill(faces [][3]int, seed, id int, region []int, edgeFaces map[models.Edge][]int, cut map[models.Edge]bool) ([]int, bool) {
	region[seed] = id
	queue := []int{seed}
	border := false

	for head := 0; head < len(queue); head++ {
		f := faces[queue[head]]
		for j := 0; j < 3; j++ {
			if f[j] == f[(j+1)%3] {
				continue
			}
			e := models.NewEdge(f[j], f[(j+1)%3])
			if cut[e] {
				border = true
				continue
			}
			for _, next := range edgeFaces[e] {
				if region[next] < 0 {
					region[next] = id
					queue = append(queue, next)
				}
			}
		}
	}
	return queue, border
}
