package sample

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/envstack"
)

// FeatureRow is one labeled point expressed as model inputs. Coordinates
// are dropped on purpose: position itself is not a covariate.
type FeatureRow struct {
	Label  int
	Values []float64
}

// FeatureTable holds the rows the model trains on together with the layer
// schema they were sampled from.
type FeatureTable struct {
	Names []string
	Kinds []envstack.Kind
	Rows  []FeatureRow
}

// Extract samples every stack layer at each labeled point. Points outside
// the grid or on cells with missing values are dropped and reported; a
// kept row always has a value for every layer.
func Extract(stack *envstack.Stack, points []LabeledPoint) (*FeatureTable, error) {
	table := &FeatureTable{Names: stack.Names(), Kinds: stack.Kinds()}

	dropped := 0
	bar := progressbar.Default(int64(len(points)), "Extracting features")
	for _, point := range points {
		values, ok := stack.Extract(point.Longitude, point.Latitude)
		bar.Add(1)
		if !ok {
			dropped++
			continue
		}
		table.Rows = append(table.Rows, FeatureRow{Label: point.Label, Values: values})
	}
	if dropped > 0 {
		fmt.Printf("Dropped %d labeled points outside the defined environmental cells\n", dropped)
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: no labeled points fall on cells with all layers defined", ErrSampling)
	}
	return table, nil
}

func (t *FeatureTable) Labels() []int {
	labels := make([]int, len(t.Rows))
	for i, row := range t.Rows {
		labels[i] = row.Label
	}
	return labels
}

// CountLabels returns the number of presence and background rows.
func (t *FeatureTable) CountLabels() (presences, background int) {
	for _, row := range t.Rows {
		if row.Label == 1 {
			presences++
		} else {
			background++
		}
	}
	return presences, background
}

// WriteCSV saves the table with a label column followed by one column per
// layer, for inspection outside the pipeline.
func (t *FeatureTable) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := append([]string{"label"}, t.Names...)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, 0, len(row.Values)+1)
		record = append(record, strconv.Itoa(row.Label))
		for _, value := range row.Values {
			record = append(record, strconv.FormatFloat(value, 'f', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
