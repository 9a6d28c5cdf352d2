// Package significance tests whether two samples have different means.
package significance

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"salesprobe/domain/core"
	"salesprobe/domain/sales"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Result of a two-sample Welch t-test.
type Result struct {
	Statistic  float64 `json:"statistic" yaml:"statistic"`
	PValue     float64 `json:"p_value" yaml:"p_value"`
	DF         float64 `json:"df" yaml:"df"`
	MeanA      float64 `json:"mean_a" yaml:"mean_a"`
	MeanB      float64 `json:"mean_b" yaml:"mean_b"`
	NA         int     `json:"n_a" yaml:"n_a"`
	NB         int     `json:"n_b" yaml:"n_b"`
	EffectSize float64 `json:"effect_size" yaml:"effect_size"` // Cohen's d, pooled SD
}

// Significant reports whether the p-value is below alpha.
func (r Result) Significant(alpha float64) bool {
	return r.PValue < alpha
}

// TwoSample runs Welch's t-test on two independent samples of individual
// observations. The p-value is two-sided.
func TwoSample(a, b []float64) (Result, error) {
	if len(a) < 2 || len(b) < 2 {
		return Result{}, core.NewInsufficientDataError(
			fmt.Sprintf("t-test needs at least two observations per sample, got %d and %d", len(a), len(b)))
	}
	if slices.ContainsFunc(a, math.IsNaN) || slices.ContainsFunc(b, math.IsNaN) {
		return Result{}, core.NewInvalidArgumentError("t-test samples must not contain NaN")
	}

	n1, n2 := float64(len(a)), float64(len(b))
	mean1, var1 := stat.MeanVariance(a, nil)
	mean2, var2 := stat.MeanVariance(b, nil)
	if var1 == 0 && var2 == 0 {
		return Result{}, core.NewInsufficientDataError("t-test is undefined when both samples are constant")
	}

	// Welch's t-statistic: t = (mean1 - mean2) / sqrt(var1/n1 + var2/n2)
	se1, se2 := var1/n1, var2/n2
	tStat := (mean1 - mean2) / math.Sqrt(se1+se2)

	// Welch-Satterthwaite
	df := (se1 + se2) * (se1 + se2) / (se1*se1/(n1-1) + se2*se2/(n2-1))

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	pValue := math.Min(1, 2*t.Survival(math.Abs(tStat)))

	pooledSD := math.Sqrt(((n1-1)*var1 + (n2-1)*var2) / (n1 + n2 - 2))

	return Result{
		Statistic:  tStat,
		PValue:     pValue,
		DF:         df,
		MeanA:      mean1,
		MeanB:      mean2,
		NA:         len(a),
		NB:         len(b),
		EffectSize: (mean1 - mean2) / pooledSD,
	}, nil
}

// DailyTotal is the summed total purchase of one calendar day.
type DailyTotal struct {
	Day       time.Time
	Total     float64
	IsWeekend bool
}

// DailyTotals sums total purchase per calendar day of the invoice date,
// in chronological order.
func DailyTotals(t sales.Table) ([]DailyTotal, error) {
	for _, col := range []string{sales.ColInvoiceDate, sales.ColIsWeekend} {
		if !t.Has(col) {
			return nil, core.NewMissingFieldError(col)
		}
	}
	byDay := make(map[time.Time]*DailyTotal)
	for _, li := range t.Items {
		y, m, d := li.InvoiceDate.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, li.InvoiceDate.Location())
		dt, ok := byDay[day]
		if !ok {
			dt = &DailyTotal{Day: day, IsWeekend: li.IsWeekend}
			byDay[day] = dt
		}
		dt.Total += li.TotalPurchase()
	}
	out := make([]DailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		out = append(out, *dt)
	}
	slices.SortFunc(out, func(x, y DailyTotal) int { return cmp.Compare(x.Day.Unix(), y.Day.Unix()) })
	return out, nil
}

// WeekdayVsWeekend compares daily sales totals on weekdays (sample A) with
// weekend days (sample B).
func WeekdayVsWeekend(t sales.Table) (Result, error) {
	days, err := DailyTotals(t)
	if err != nil {
		return Result{}, err
	}
	var weekday, weekend []float64
	for _, d := range days {
		if d.IsWeekend {
			weekend = append(weekend, d.Total)
		} else {
			weekday = append(weekday, d.Total)
		}
	}
	return TwoSample(weekday, weekend)
}
