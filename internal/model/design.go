package model

import (
	"fmt"
	"sort"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/envstack"
	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/sample"
)

// Covariate is one stack layer as the model sees it. Categorical
// covariates carry the level set observed during training; the first
// level is the reference and gets no indicator column.
type Covariate struct {
	Name        string
	Categorical bool
	Levels      []float64
}

// Design maps feature rows onto numeric design vectors with an intercept
// and dummy-coded categorical levels. The covariate list is explicit so
// the model never depends on incidental column order in a file.
type Design struct {
	Covariates []Covariate
}

// NewDesign builds the design from the table schema and the categorical
// level sets observed in the given rows.
func NewDesign(table *sample.FeatureTable, rows []int) (Design, error) {
	design := Design{Covariates: make([]Covariate, 0, len(table.Names))}
	for i, name := range table.Names {
		covariate := Covariate{Name: name, Categorical: table.Kinds[i] == envstack.Categorical}
		if covariate.Categorical {
			seen := make(map[float64]bool)
			for _, r := range rows {
				seen[table.Rows[r].Values[i]] = true
			}
			if len(seen) == 0 {
				return Design{}, fmt.Errorf("%w: categorical covariate %s has no observed levels", ErrFit, name)
			}
			for level := range seen {
				covariate.Levels = append(covariate.Levels, level)
			}
			sort.Float64s(covariate.Levels)
		}
		design.Covariates = append(design.Covariates, covariate)
	}
	return design, nil
}

// Terms returns the number of design-matrix columns, intercept included.
func (d Design) Terms() int {
	terms := 1
	for _, covariate := range d.Covariates {
		if covariate.Categorical {
			terms += len(covariate.Levels) - 1
		} else {
			terms++
		}
	}
	return terms
}

// TermNames lists the design columns in order.
func (d Design) TermNames() []string {
	names := []string{"(Intercept)"}
	for _, covariate := range d.Covariates {
		if covariate.Categorical {
			for _, level := range covariate.Levels[1:] {
				names = append(names, fmt.Sprintf("%s=%g", covariate.Name, level))
			}
		} else {
			names = append(names, covariate.Name)
		}
	}
	return names
}

// Vector expands one row of layer values into a design vector, reusing
// dst when it has capacity. A categorical level unseen during training
// maps to the reference level, so all its indicators stay zero.
func (d Design) Vector(values []float64, dst []float64) []float64 {
	dst = append(dst[:0], 1)
	for i, covariate := range d.Covariates {
		value := values[i]
		if covariate.Categorical {
			for _, level := range covariate.Levels[1:] {
				if value == level {
					dst = append(dst, 1)
				} else {
					dst = append(dst, 0)
				}
			}
		} else {
			dst = append(dst, value)
		}
	}
	return dst
}
