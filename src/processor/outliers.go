package processor

import (
	"AirbnbCleaner/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// FilterOutliers 只保留 Column <= Threshold 的行。
// 缺失值默认删除(比较结果为假)，KeepMissing 为真时保留。
type FilterOutliers struct {
	Column      string
	Threshold   float64
	KeepMissing bool
}

func (FilterOutliers) Name() string { return "filter_outliers" }

func (f FilterOutliers) Apply(t Table, r *Report) Table {
	if !t.Has(f.Column) || t.Nrow() == 0 {
		if !t.Has(f.Column) {
			r.skip(f.Name(), f.Column)
		}
		return t
	}

	before := t.Nrow()
	out := t.Derive(t.DF.Filter(dataframe.F{
		Colname:    f.Column,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			if utils.IsMissing(el) {
				return f.KeepMissing
			}
			return el.Float() <= f.Threshold
		},
	}))
	r.RowsFiltered += before - out.Nrow()
	return out
}
