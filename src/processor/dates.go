package processor

import (
	"AirbnbCleaner/src/utils"

	"github.com/go-gota/gota/series"
)

// ParseTemporal 将日期列统一为 2006-01-02，无法解析的单元格记为缺失。
// 只有 xlsx 来源的表(Table.ExcelDates)才把纯数字当作 Excel 序列日期
type ParseTemporal struct {
	Columns []string
	Layouts []string
}

func (ParseTemporal) Name() string { return "parse_temporal" }

func (p ParseTemporal) Apply(t Table, r *Report) Table {
	out := t.Derive(t.DF)
	converted := make(map[string]series.Series)

	for _, col := range p.Columns {
		if !t.Has(col) {
			r.skip(p.Name(), col)
			continue
		}
		s, coerced := p.parseSeries(t.DF.Col(col), t.ExcelDates)
		converted[col] = s
		out.Schema[col] = KindTemporal
		if coerced > 0 {
			r.Coerced[col] += coerced
		}
	}

	out.DF = replaceColumns(t.DF, converted)
	return out
}

// parseSeries excelDates 为 false 时纯数字不是日期，例如 CSV 中的 "2016"
func (p ParseTemporal) parseSeries(s series.Series, excelDates bool) (series.Series, int) {
	coerced := 0
	vals := make([]string, s.Len())
	missing := make([]bool, s.Len())
	for i := range vals {
		el := s.Elem(i)
		if utils.IsMissing(el) {
			missing[i] = true
			continue
		}
		d, ok := utils.ParseDate(el.String(), p.Layouts)
		if !ok && excelDates {
			d, ok = utils.ParseExcelDate(el.String())
		}
		if !ok {
			missing[i] = true
			coerced++
			continue
		}
		vals[i] = d.Format(utils.DateLayout)
	}
	return stringSeries(s.Name, vals, missing), coerced
}
