package trainer

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

// WriteLossCSV writes one row per layer and epoch.
func WriteLossCSV(w io.Writer, losses [][]float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"layer", "epoch", "loss"}); err != nil {
		return err
	}
	for l, history := range losses {
		for e, loss := range history {
			row := []string{strconv.Itoa(l), strconv.Itoa(e), strconv.FormatFloat(loss, 'g', -1, 64)}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLossCSVFile writes the loss history to a file.
func WriteLossCSVFile(name string, losses [][]float64) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	err = WriteLossCSV(file, losses)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}
