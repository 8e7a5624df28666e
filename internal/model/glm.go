package model

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/sodeidelphonse/Geotraining-Unit-SDMs/internal/sample"
)

// ErrFit marks a training or evaluation set the model cannot be fit on.
var ErrFit = errors.New("model fit error")

const (
	maxIterations     = 25
	devianceTolerance = 1e-8
	minWeight         = 1e-10
)

// Logistic is the inverse link of the binomial GLM.
func Logistic(eta float64) float64 {
	return 1 / (1 + math.Exp(-eta))
}

// Fitted is a trained binomial GLM with logit link.
type Fitted struct {
	Design       Design
	Coefficients []float64
	Iterations   int
	Converged    bool
	Deviance     float64
	NullDeviance float64
}

// Fit trains the GLM on the listed table rows with iteratively reweighted
// least squares. The training set must contain both classes and at least
// as many rows as model terms.
func Fit(table *sample.FeatureTable, rows []int) (*Fitted, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty training set", ErrFit)
	}
	presences, background := 0, 0
	for _, r := range rows {
		if table.Rows[r].Label == 1 {
			presences++
		} else {
			background++
		}
	}
	if presences == 0 || background == 0 {
		return nil, fmt.Errorf("%w: training set needs both classes, got %d presences and %d background rows",
			ErrFit, presences, background)
	}

	design, err := NewDesign(table, rows)
	if err != nil {
		return nil, err
	}
	terms := design.Terms()
	if len(rows) < terms {
		return nil, fmt.Errorf("%w: %d rows cannot identify %d model terms", ErrFit, len(rows), terms)
	}

	n := len(rows)
	X := mat.NewDense(n, terms, nil)
	y := make([]float64, n)
	vector := make([]float64, 0, terms)
	for i, r := range rows {
		row := table.Rows[r]
		y[i] = float64(row.Label)
		vector = design.Vector(row.Values, vector)
		X.SetRow(i, vector)
	}

	// The usual binomial starting point keeps the first weights away
	// from zero.
	eta := make([]float64, n)
	mu := make([]float64, n)
	for i := range mu {
		mu[i] = (y[i] + 0.5) / 2
		eta[i] = math.Log(mu[i] / (1 - mu[i]))
	}

	coefficients := mat.NewVecDense(terms, nil)
	weighted := mat.NewDense(n, terms, nil)
	z := mat.NewVecDense(n, nil)
	var qr mat.QR

	deviance := binomialDeviance(y, mu)
	iterations := 0
	converged := false
	for iterations < maxIterations {
		iterations++

		// Solve the weighted least squares step through QR on the
		// sqrt-weight scaled system.
		for i := 0; i < n; i++ {
			w := mu[i] * (1 - mu[i])
			if w < minWeight {
				w = minWeight
			}
			sw := math.Sqrt(w)
			for j := 0; j < terms; j++ {
				weighted.Set(i, j, sw*X.At(i, j))
			}
			z.SetVec(i, sw*(eta[i]+(y[i]-mu[i])/w))
		}
		qr.Factorize(weighted)
		if err := qr.SolveVecTo(coefficients, false, z); err != nil {
			return nil, fmt.Errorf("%w: weighted least squares step failed, covariates may be collinear: %v", ErrFit, err)
		}

		for i := 0; i < n; i++ {
			eta[i] = mat.Dot(X.RowView(i), coefficients)
			mu[i] = Logistic(eta[i])
		}

		updated := binomialDeviance(y, mu)
		if math.IsNaN(updated) || math.IsInf(updated, 0) {
			return nil, fmt.Errorf("%w: deviance diverged after %d iterations", ErrFit, iterations)
		}
		converged = math.Abs(updated-deviance)/(math.Abs(updated)+0.1) < devianceTolerance
		deviance = updated
		if converged {
			break
		}
	}
	if !converged {
		fmt.Printf("GLM did not converge after %d iterations, coefficients may be unstable\n", iterations)
	}

	out := make([]float64, terms)
	for j := 0; j < terms; j++ {
		value := coefficients.AtVec(j)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("%w: coefficient for %s is not finite", ErrFit, design.TermNames()[j])
		}
		out[j] = value
	}

	return &Fitted{
		Design:       design,
		Coefficients: out,
		Iterations:   iterations,
		Converged:    converged,
		Deviance:     deviance,
		NullDeviance: nullDeviance(y),
	}, nil
}

// Predict returns the fitted probability for one row of layer values in
// design order.
func (f *Fitted) Predict(values []float64) float64 {
	vector := f.Design.Vector(values, nil)
	eta := 0.0
	for j, value := range vector {
		eta += f.Coefficients[j] * value
	}
	return Logistic(eta)
}

// Summary formats the fit as a compact regression report.
func (f *Fitted) Summary() string {
	var b strings.Builder
	if f.Converged {
		fmt.Fprintf(&b, "Binomial GLM (logit link), converged after %d iterations\n", f.Iterations)
	} else {
		fmt.Fprintf(&b, "Binomial GLM (logit link), stopped without converging after %d iterations\n", f.Iterations)
	}
	fmt.Fprintf(&b, "Null deviance %.2f, residual deviance %.2f\n", f.NullDeviance, f.Deviance)
	for j, name := range f.Design.TermNames() {
		fmt.Fprintf(&b, "  %-20s % .6f\n", name, f.Coefficients[j])
	}
	return b.String()
}

func binomialDeviance(y, mu []float64) float64 {
	deviance := 0.0
	for i := range y {
		p := math.Min(math.Max(mu[i], minWeight), 1-minWeight)
		if y[i] == 1 {
			deviance -= 2 * math.Log(p)
		} else {
			deviance -= 2 * math.Log(1-p)
		}
	}
	return deviance
}

func nullDeviance(y []float64) float64 {
	mean := floats.Sum(y) / float64(len(y))
	mu := make([]float64, len(y))
	for i := range mu {
		mu[i] = mean
	}
	return binomialDeviance(y, mu)
}
