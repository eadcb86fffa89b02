package sink

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// writeNPY encodes vectors as a NumPy .npy v1.0 file: little-endian float32,
// C order, 2-D shape (rows, cols). All vectors must share one length.
func writeNPY(w io.Writer, vectors [][]float32) error {
	rows := len(vectors)
	cols := 0
	if rows > 0 {
		cols = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != cols {
			return fmt.Errorf("ragged vectors: row %d has %d values, want %d", i, len(v), cols)
		}
	}

	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)
	// Magic (6) + version (2) + header length (2) + header, padded with
	// spaces to a multiple of 64 and terminated by a newline.
	total := 10 + len(header) + 1
	pad := (64 - total%64) % 64
	for i := 0; i < pad; i++ {
		header += " "
	}
	header += "\n"

	if _, err := w.Write([]byte("\x93NUMPY")); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := w.Write([]byte(header)); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for _, vec := range vectors {
		for _, v := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}
