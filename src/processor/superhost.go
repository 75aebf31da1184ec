package processor

import (
	"AirbnbCleaner/src/utils"

	"github.com/go-gota/gota/series"
)

// MapBoolean 将 "t"/"f" 列转换为 1/0；缺失值为 0。
// 其他取值同样记为 0，并在 Report.Unmapped 中计数。
type MapBoolean struct {
	Column string
}

func (MapBoolean) Name() string { return "map_boolean" }

func (m MapBoolean) Apply(t Table, r *Report) Table {
	if !t.Has(m.Column) {
		r.skip(m.Name(), m.Column)
		return t
	}

	s := t.DF.Col(m.Column)
	if s.Type() == series.Int {
		return t
	}
	vals := make([]int, s.Len())
	for i := range vals {
		el := s.Elem(i)
		if utils.IsMissing(el) {
			continue
		}
		switch v := el.String(); v {
		case "t":
			vals[i] = 1
		case "f":
		default:
			r.Unmapped[v]++
		}
	}

	out := t.Derive(t.DF)
	out.Schema[m.Column] = KindBoolean
	out.DF = replaceColumns(t.DF, map[string]series.Series{
		m.Column: series.New(vals, series.Int, m.Column),
	})
	return out
}
