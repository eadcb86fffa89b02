package sink

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
)

// writeCSV encodes one vector per row.
func writeCSV(w io.Writer, vectors [][]float32) error {
	cw := csv.NewWriter(w)
	row := []string{}
	for _, vec := range vectors {
		row = row[:0]
		for _, v := range vec {
			row = append(row, strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSON encodes vectors as a nested JSON array.
func writeJSON(w io.Writer, vectors [][]float32) error {
	enc := json.NewEncoder(w)
	if vectors == nil {
		vectors = [][]float32{}
	}
	return enc.Encode(vectors)
}
