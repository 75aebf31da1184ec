package processor

import (
	"math"
	"time"

	"AirbnbCleaner/src/utils"

	"github.com/go-gota/gota/series"
)

const secondsPerDay = 24 * 60 * 60

// ImputeNumeric 数值列的缺失值用该列观测值的中位数填充。
// 中位数在过滤异常值之后、每列计算一次；没有观测值的列填 0。
type ImputeNumeric struct{}

func (ImputeNumeric) Name() string { return "impute_numeric" }

func (ImputeNumeric) Apply(t Table, r *Report) Table {
	out := t.Derive(t.DF)
	filled := make(map[string]series.Series)

	for _, col := range t.Columns(KindNumeric, KindIndicator) {
		s, n := ImputeMedian(t.DF.Col(col))
		if n == 0 {
			continue
		}
		filled[col] = s
		r.Imputed[col] += n
	}

	out.DF = replaceColumns(t.DF, filled)
	return out
}

// ImputeMedian 返回填充后的浮点列和填充的单元格数
func ImputeMedian(s series.Series) (series.Series, int) {
	vals := s.Float()
	var observed []float64
	missing := 0
	for i, v := range vals {
		if utils.IsMissing(s.Elem(i)) || math.IsNaN(v) {
			missing++
			continue
		}
		observed = append(observed, v)
	}
	if missing == 0 {
		return s, 0
	}

	median := 0.0
	if len(observed) > 0 {
		median = series.Floats(observed).Median()
	}

	out := make([]float64, len(vals))
	for i, v := range vals {
		if utils.IsMissing(s.Elem(i)) || math.IsNaN(v) {
			out[i] = median
			continue
		}
		out[i] = v
	}
	return series.New(out, series.Float, s.Name), missing
}

// ImputeTemporal 日期列的缺失值用观测日期的中位数填充；没有观测值时填占位符
type ImputeTemporal struct {
	Placeholder string
}

func (ImputeTemporal) Name() string { return "impute_temporal" }

func (i ImputeTemporal) Apply(t Table, r *Report) Table {
	out := t.Derive(t.DF)
	filled := make(map[string]series.Series)

	for _, col := range t.Columns(KindTemporal) {
		s := t.DF.Col(col)
		dates := make([]string, s.Len())
		var days []float64
		missing := 0
		for idx := range dates {
			el := s.Elem(idx)
			if utils.IsMissing(el) {
				missing++
				continue
			}
			dates[idx] = el.String()
			if d, err := time.Parse(utils.DateLayout, dates[idx]); err == nil {
				days = append(days, float64(d.Unix()/secondsPerDay))
			}
		}
		if missing == 0 {
			continue
		}

		fill := i.Placeholder
		if len(days) > 0 {
			median := math.Floor(series.Floats(days).Median())
			fill = time.Unix(int64(median)*secondsPerDay, 0).UTC().Format(utils.DateLayout)
		}
		for idx := range dates {
			if utils.IsMissing(s.Elem(idx)) {
				dates[idx] = fill
			}
		}
		filled[col] = stringSeries(col, dates, nil)
		r.Imputed[col] += missing
	}

	out.DF = replaceColumns(t.DF, filled)
	return out
}

// ImputeText 文本列的缺失值填充为占位符("Unknown")
type ImputeText struct {
	Placeholder string
}

func (ImputeText) Name() string { return "impute_text" }

func (i ImputeText) Apply(t Table, r *Report) Table {
	out := t.Derive(t.DF)
	filled := make(map[string]series.Series)

	for _, col := range t.Columns(KindText) {
		s := t.DF.Col(col)
		vals := s.Records()
		missing := 0
		for idx := range vals {
			if utils.IsMissing(s.Elem(idx)) {
				vals[idx] = i.Placeholder
				missing++
			}
		}
		if missing == 0 {
			continue
		}
		filled[col] = stringSeries(col, vals, nil)
		r.Imputed[col] += missing
	}

	out.DF = replaceColumns(t.DF, filled)
	return out
}
