// Package stl writes triangle meshes as binary STL files
package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"cortexgeom/internal/models"
)

// headerSize is the fixed size of the binary STL header
const headerSize = 80

// Triangle represents a single STL facet
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// FromMesh converts every face of m into a facet with its unit normal.
// Faces of zero area get a zero normal.
func FromMesh(m *models.Mesh) []Triangle {
	if m == nil {
		return nil
	}

	triangles := make([]Triangle, 0, len(m.Faces))
	for _, f := range m.Faces {
		a, b, c := m.Points[f[0]], m.Points[f[1]], m.Points[f[2]]

		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		if l := r3.Norm(n); l > 0 {
			n = r3.Scale(1/l, n)
		}

		triangles = append(triangles, Triangle{
			Normal:  toFloat32(n),
			Vertex1: toFloat32(a),
			Vertex2: toFloat32(b),
			Vertex3: toFloat32(c),
		})
	}
	return triangles
}

// SaveMesh writes m to filename as binary STL
func SaveMesh(filename string, m *models.Mesh) error {
	return SaveToSTL(filename, FromMesh(m))
}

// SaveToSTL writes triangles to filename as binary STL
func SaveToSTL(filename string, triangles []Triangle) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create STL file: %w", err)
	}
	defer file.Close()

	if err := Write(file, triangles); err != nil {
		return err
	}
	return file.Close()
}

// Write encodes triangles as binary STL: an 80-byte header, a little-endian
// triangle count, then 50 bytes per facet
func Write(w io.Writer, triangles []Triangle) error {
	bw := bufio.NewWriter(w)

	header := make([]byte, headerSize)
	copy(header, "cortexgeom binary STL")
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("failed to write STL header: %w", err)
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	for i, t := range triangles {
		facet := struct {
			Triangle
			Attribute uint16
		}{Triangle: t}
		if err := binary.Write(bw, binary.LittleEndian, facet); err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", i, err)
		}
	}

	return bw.Flush()
}

// Read decodes a binary STL stream written by Write
func Read(r io.Reader) ([]Triangle, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read STL header: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read triangle count: %w", err)
	}

	triangles := make([]Triangle, count)
	for i := range triangles {
		var facet struct {
			Triangle
			Attribute uint16
		}
		if err := binary.Read(r, binary.LittleEndian, &facet); err != nil {
			return nil, fmt.Errorf("failed to read triangle %d: %w", i, err)
		}
		triangles[i] = facet.Triangle
	}
	return triangles, nil
}

func toFloat32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
