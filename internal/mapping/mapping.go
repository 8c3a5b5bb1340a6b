// Package mapping gives the opaque video-warping descriptor a concrete
// shape without the playback core ever interpreting its geometry: resolving
// which descriptor applies (scene overrides project, disabled entries
// skipped) is the only logic the core performs on it.
package mapping

// Mode selects between a four-corner perspective warp and a deformable mesh.
type Mode string

const (
	ModePerspective Mode = "perspective"
	ModeMesh        Mode = "mesh"
)

// Point is a single 2D coordinate, used both for perspective corners and
// mesh grid points.
type Point struct {
	X float64
	Y float64
}

// Grid is a deformable rows×cols mesh of control points.
type Grid struct {
	Rows   int
	Cols   int
	Points []Point
}

// Deformed reports whether any point in the grid differs from the identity
// (undeformed, evenly-spaced) layout for its Rows/Cols. Identity layout maps
// row r, col c to normalized position (c/(Cols-1), r/(Rows-1)).
func (g Grid) Deformed() bool {
	if g.Rows < 2 || g.Cols < 2 {
		return len(g.Points) > 0
	}
	for i, p := range g.Points {
		row := i / g.Cols
		col := i % g.Cols
		wantX := float64(col) / float64(g.Cols-1)
		wantY := float64(row) / float64(g.Rows-1)
		if p.X != wantX || p.Y != wantY {
			return true
		}
	}
	return false
}

// Descriptor is the opaque (to the playback core) mapping configuration
// handed verbatim to the video collaborator at scene load.
type Descriptor struct {
	Enabled    bool
	Mode       Mode
	Corners    [4]Point // used when Mode == ModePerspective
	Mesh       *Grid    // used when Mode == ModeMesh
	Background string
	SourceRes  [2]int
	TargetRes  [2]int
}

// Resolve picks the effective descriptor for a scene: the scene's own
// mapping overrides the project-global one; a descriptor with Enabled=false
// is treated as absent.
func Resolve(projectLevel, sceneLevel *Descriptor) *Descriptor {
	if sceneLevel != nil && sceneLevel.Enabled {
		return sceneLevel
	}
	if projectLevel != nil && projectLevel.Enabled {
		return projectLevel
	}
	return nil
}
