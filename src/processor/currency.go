package processor

import (
	"math"
	"strings"

	"AirbnbCleaner/src/utils"

	"github.com/go-gota/gota/series"
)

// 货币符号和千分位
var currencyReplacer = strings.NewReplacer("$", "", ",", "")

// NormalizeCurrency 去掉 "$" 和 "," 后转为浮点数，无法解析的单元格记为缺失
type NormalizeCurrency struct {
	Columns []string
}

func (NormalizeCurrency) Name() string { return "normalize_currency" }

func (n NormalizeCurrency) Apply(t Table, r *Report) Table {
	out := t.Derive(t.DF)
	converted := make(map[string]series.Series)

	for _, col := range n.Columns {
		if !t.Has(col) {
			r.skip(n.Name(), col)
			continue
		}
		s, coerced := NormalizeCurrencySeries(t.DF.Col(col))
		converted[col] = s
		out.Schema[col] = KindNumeric
		if coerced > 0 {
			r.Coerced[col] += coerced
		}
	}

	out.DF = replaceColumns(t.DF, converted)
	return out
}

// NormalizeCurrencySeries 规范化一列，返回新列和转为缺失的单元格数。
// 已经是数值的列原样返回。
func NormalizeCurrencySeries(s series.Series) (series.Series, int) {
	if s.Type() == series.Float || s.Type() == series.Int {
		return toFloatSeries(s), 0
	}

	coerced := 0
	vals := make([]float64, s.Len())
	for i := range vals {
		el := s.Elem(i)
		vals[i] = math.NaN()
		if utils.IsMissing(el) {
			continue
		}
		v, ok := ParseCurrency(el.String())
		if !ok {
			coerced++
			continue
		}
		vals[i] = v
	}
	return series.New(vals, series.Float, s.Name), coerced
}

// ParseCurrency "$1,200.50" -> 1200.5
func ParseCurrency(s string) (float64, bool) {
	return parseNumber(currencyReplacer.Replace(strings.TrimSpace(s)))
}
