package processor

import (
	"math"
	"strings"

	"AirbnbCleaner/src/config"
	"AirbnbCleaner/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/spf13/cast"
)

// Kind 列的语义类型
type Kind int

const (
	KindText        Kind = iota // 文本/分类
	KindNumeric                 // 数值
	KindTemporal                // 日期
	KindCurrency                // 货币文本，规范化后变为数值
	KindMultiValued             // 多值字段(amenities)
	KindBoolean                 // 布尔类字段(t/f)
	KindIndicator               // 生成的 0/1 指示列
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumeric:
		return "numeric"
	case KindTemporal:
		return "temporal"
	case KindCurrency:
		return "currency"
	case KindMultiValued:
		return "multi_valued"
	case KindBoolean:
		return "boolean"
	case KindIndicator:
		return "indicator"
	default:
		return "unknown"
	}
}

// IsNumeric 数值类列参与中位数填充
func (k Kind) IsNumeric() bool {
	return k == KindNumeric || k == KindIndicator
}

// Schema 列名到语义类型的映射，在加载时确定一次
type Schema map[string]Kind

// Clone 复制 Schema，每个步骤各自持有
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Table 清洗过程中传递的表：数据 + 列类型
type Table struct {
	DF     dataframe.DataFrame
	Schema Schema

	// ExcelDates 表来自 xlsx，日期列中的纯数字按 Excel 序列日期解析
	ExcelDates bool
}

// Derive 用新的 DataFrame 生成下一步的表，Schema 被复制
func (t Table) Derive(df dataframe.DataFrame) Table {
	return Table{DF: df, Schema: t.Schema.Clone(), ExcelDates: t.ExcelDates}
}

// Columns 按列顺序返回属于指定类型的列名
func (t Table) Columns(kinds ...Kind) []string {
	var cols []string
	for _, name := range t.DF.Names() {
		if kind, ok := t.Schema[name]; ok && utils.Contains(kinds, kind) {
			cols = append(cols, name)
		}
	}
	return cols
}

// Has 判断列是否存在
func (t Table) Has(name string) bool {
	return name != "" && utils.HasColumn(t.DF, name)
}

// Nrow 行数
func (t Table) Nrow() int {
	return t.DF.Nrow()
}

// Ncol 列数
func (t Table) Ncol() int {
	return len(t.DF.Names())
}

// Head 返回前 n 行
func (t Table) Head(n int) dataframe.DataFrame {
	if n > t.Nrow() {
		n = t.Nrow()
	}
	if n <= 0 || t.Ncol() == 0 {
		return t.DF.Subset([]int{})
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.DF.Subset(idx)
}

// NewTable 根据清洗规则推断 Schema，并把推断为数值的列转换为浮点列。
// 声明过的列(货币、日期、amenities、superhost)保持文本，由对应步骤处理。
func NewTable(df dataframe.DataFrame, dcfg *config.DataConfig) Table {
	schema := InferSchema(df, dcfg)
	converted := make(map[string]series.Series)
	for _, name := range df.Names() {
		if schema[name] == KindNumeric {
			converted[name] = toFloatSeries(df.Col(name))
		}
	}
	return Table{DF: replaceColumns(df, converted), Schema: schema}
}

// InferSchema 声明的列使用声明类型；其余列所有非缺失值都能解析为数字时为数值列，否则为文本列
func InferSchema(df dataframe.DataFrame, dcfg *config.DataConfig) Schema {
	declared := make(Schema)
	for _, c := range dcfg.CurrencyColumns {
		declared[c] = KindCurrency
	}
	for _, c := range dcfg.DateColumns {
		declared[c] = KindTemporal
	}
	if dcfg.AmenitiesColumn != "" {
		declared[dcfg.AmenitiesColumn] = KindMultiValued
	}
	if dcfg.SuperhostColumn != "" {
		declared[dcfg.SuperhostColumn] = KindBoolean
	}

	schema := make(Schema, df.Ncol())
	for _, name := range df.Names() {
		if kind, ok := declared[name]; ok {
			schema[name] = kind
			continue
		}
		schema[name] = inferKind(df.Col(name))
	}
	return schema
}

func inferKind(s series.Series) Kind {
	switch s.Type() {
	case series.Float, series.Int:
		return KindNumeric
	}

	observed := 0
	for i := 0; i < s.Len(); i++ {
		el := s.Elem(i)
		if utils.IsMissing(el) {
			continue
		}
		if _, ok := parseNumber(el.String()); !ok {
			return KindText
		}
		observed++
	}
	if observed == 0 {
		return KindText
	}
	return KindNumeric
}

// parseNumber 解析数字，空串和无法解析的值返回 false
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// toFloatSeries 转为浮点列，无法解析的值记为 NaN
func toFloatSeries(s series.Series) series.Series {
	if s.Type() == series.Float {
		return s
	}
	vals := make([]float64, s.Len())
	for i := range vals {
		el := s.Elem(i)
		vals[i] = math.NaN()
		if utils.IsMissing(el) {
			continue
		}
		if v, ok := parseNumber(el.String()); ok {
			vals[i] = v
		}
	}
	return series.New(vals, series.Float, s.Name)
}

// stringSeries 构建文本列，missing 为 true 的位置记为 NA
func stringSeries(name string, vals []string, missing []bool) series.Series {
	out := make([]string, len(vals))
	for i, v := range vals {
		if missing != nil && missing[i] {
			out[i] = "NaN"
			continue
		}
		out[i] = v
	}
	return series.New(out, series.String, name)
}

// selectColumns 选择列，没有剩余列时返回空表
func selectColumns(df dataframe.DataFrame, names []string) dataframe.DataFrame {
	if len(names) == 0 {
		return dataframe.New()
	}
	if len(names) == df.Ncol() {
		return df
	}
	return df.Select(names)
}

// replaceColumns 一次性替换多列，保持列顺序
func replaceColumns(df dataframe.DataFrame, repl map[string]series.Series) dataframe.DataFrame {
	if len(repl) == 0 {
		return df
	}
	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		if s, ok := repl[name]; ok {
			s.Name = name
			cols = append(cols, s)
			continue
		}
		cols = append(cols, df.Col(name))
	}
	return dataframe.New(cols...)
}
