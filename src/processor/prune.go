package processor

import (
	"AirbnbCleaner/src/utils"

	"github.com/go-gota/gota/series"
)

// PruneSparse 删除非缺失比例低于 MinNonMissing 的列
type PruneSparse struct {
	MinNonMissing float64
}

func (PruneSparse) Name() string { return "prune_sparse" }

func (p PruneSparse) Apply(t Table, r *Report) Table {
	// 空表没有可计算的比例，保留全部列
	if t.Nrow() == 0 {
		return t
	}

	var keep []string
	out := t.Derive(t.DF)
	for _, name := range t.DF.Names() {
		if NonMissingFraction(t.DF.Col(name)) >= p.MinNonMissing {
			keep = append(keep, name)
			continue
		}
		r.DroppedColumns = append(r.DroppedColumns, name)
		delete(out.Schema, name)
	}

	out.DF = selectColumns(t.DF, keep)
	return out
}

// NonMissingFraction 非缺失单元格占比
func NonMissingFraction(s series.Series) float64 {
	n := s.Len()
	if n == 0 {
		return 0
	}
	present := 0
	for i := 0; i < n; i++ {
		if !utils.IsMissing(s.Elem(i)) {
			present++
		}
	}
	return float64(present) / float64(n)
}
