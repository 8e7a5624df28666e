package model

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/sample"
)

// CurvePoint is sensitivity and specificity at one probability cutoff.
type CurvePoint struct {
	Cutoff      float64
	Sensitivity float64
	Specificity float64
}

// Evaluation summarizes model skill on held-out rows at the cutoff that
// maximizes sensitivity plus specificity.
type Evaluation struct {
	Threshold      float64
	Sensitivity    float64
	Specificity    float64
	AUC            float64
	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
	TestPresences  int
	TestBackground int
	Curve          []CurvePoint
}

// Evaluate scores the fitted model on the listed held-out rows. A cell
// counts as predicted presence when its probability is at least the
// cutoff. Candidate cutoffs are the distinct predicted probabilities;
// ties on the optimality criterion resolve to the smallest cutoff.
func Evaluate(fitted *Fitted, table *sample.FeatureTable, rows []int) (*Evaluation, error) {
	var presenceScores, backgroundScores []float64
	for _, r := range rows {
		row := table.Rows[r]
		score := fitted.Predict(row.Values)
		if row.Label == 1 {
			presenceScores = append(presenceScores, score)
		} else {
			backgroundScores = append(backgroundScores, score)
		}
	}
	if len(presenceScores) == 0 || len(backgroundScores) == 0 {
		return nil, fmt.Errorf("%w: evaluation needs both classes, got %d presences and %d background rows",
			ErrFit, len(presenceScores), len(backgroundScores))
	}

	evaluation := &Evaluation{
		TestPresences:  len(presenceScores),
		TestBackground: len(backgroundScores),
	}

	cutoffs := distinctSorted(presenceScores, backgroundScores)
	best := -1.0
	for _, cutoff := range cutoffs {
		sensitivity := fractionAtLeast(presenceScores, cutoff)
		specificity := 1 - fractionAtLeast(backgroundScores, cutoff)
		evaluation.Curve = append(evaluation.Curve, CurvePoint{
			Cutoff:      cutoff,
			Sensitivity: sensitivity,
			Specificity: specificity,
		})
		if sensitivity+specificity > best {
			best = sensitivity + specificity
			evaluation.Threshold = cutoff
			evaluation.Sensitivity = sensitivity
			evaluation.Specificity = specificity
		}
	}

	for _, score := range presenceScores {
		if score >= evaluation.Threshold {
			evaluation.TruePositives++
		} else {
			evaluation.FalseNegatives++
		}
	}
	for _, score := range backgroundScores {
		if score < evaluation.Threshold {
			evaluation.TrueNegatives++
		} else {
			evaluation.FalsePositives++
		}
	}

	evaluation.AUC = rocAUC(presenceScores, backgroundScores)
	return evaluation, nil
}

// Report formats the evaluation for the run summary.
func (e *Evaluation) Report() string {
	return fmt.Sprintf(
		"Threshold %.4f (sensitivity %.3f, specificity %.3f), AUC %.3f\n"+
			"Confusion on %d presences / %d background: TP %d, FN %d, TN %d, FP %d",
		e.Threshold, e.Sensitivity, e.Specificity, e.AUC,
		e.TestPresences, e.TestBackground,
		e.TruePositives, e.FalseNegatives, e.TrueNegatives, e.FalsePositives)
}

func distinctSorted(presence, background []float64) []float64 {
	merged := make([]float64, 0, len(presence)+len(background))
	merged = append(merged, presence...)
	merged = append(merged, background...)
	sort.Float64s(merged)

	distinct := merged[:0]
	for i, value := range merged {
		if i == 0 || value != distinct[len(distinct)-1] {
			distinct = append(distinct, value)
		}
	}
	return distinct
}

func fractionAtLeast(scores []float64, cutoff float64) float64 {
	count := 0
	for _, score := range scores {
		if score >= cutoff {
			count++
		}
	}
	return float64(count) / float64(len(scores))
}

func rocAUC(presenceScores, backgroundScores []float64) float64 {
	scores := make([]float64, 0, len(presenceScores)+len(backgroundScores))
	classes := make([]bool, 0, cap(scores))
	for _, score := range presenceScores {
		scores = append(scores, score)
		classes = append(classes, true)
	}
	for _, score := range backgroundScores {
		scores = append(scores, score)
		classes = append(classes, false)
	}
	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}
