package processor

import (
	"sort"
	"strings"

	"AirbnbCleaner/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// 去掉花括号和引号
var listPunct = strings.NewReplacer("{", "", "}", "", `"`, "", "'", "")

// ExpandMultiValued 将 {"Wifi","Kitchen"} 形式的多值字段展开为 Prefix+token 的 0/1 列，
// 并删除原列
type ExpandMultiValued struct {
	Column string
	Prefix string
}

func (ExpandMultiValued) Name() string { return "expand_multi_valued" }

func (e ExpandMultiValued) Apply(t Table, r *Report) Table {
	if !t.Has(e.Column) {
		r.skip(e.Name(), e.Column)
		return t
	}

	// 1. 每行解析为 token 集合
	col := t.DF.Col(e.Column)
	rows := make([]map[string]struct{}, col.Len())
	vocab := make(map[string]struct{})
	for i := range rows {
		el := col.Elem(i)
		if utils.IsMissing(el) {
			continue
		}
		rows[i] = make(map[string]struct{})
		for _, tok := range ParseTokens(el.String()) {
			rows[i][tok] = struct{}{}
			vocab[tok] = struct{}{}
		}
	}

	tokens := make([]string, 0, len(vocab))
	for tok := range vocab {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	// 2. 每个 token 一列
	indicators := make([]series.Series, 0, len(tokens))
	names := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		vals := make([]int, len(rows))
		for i, set := range rows {
			if _, ok := set[tok]; ok {
				vals[i] = 1
			}
		}
		name := e.Prefix + tok
		indicators = append(indicators, series.New(vals, series.Int, name))
		names = append(names, name)
	}

	// 3. 删除原列并拼接指示列；已有同名列时由指示列替换，避免 CBind 重命名
	out := t.Derive(t.DF)
	delete(out.Schema, e.Column)

	var rest []string
	for _, name := range t.DF.Names() {
		switch {
		case name == e.Column:
		case utils.Contains(names, name):
			r.ReplacedColumns = append(r.ReplacedColumns, name)
		default:
			rest = append(rest, name)
		}
	}

	switch {
	case len(indicators) == 0:
		out.DF = selectColumns(t.DF, rest)
	case len(rest) == 0:
		out.DF = dataframe.New(indicators...)
	default:
		out.DF = t.DF.Select(rest).CBind(dataframe.New(indicators...))
	}

	for _, name := range names {
		out.Schema[name] = KindIndicator
	}
	r.IndicatorColumns = append(r.IndicatorColumns, names...)
	return out
}

// ParseTokens 去掉括号引号，转小写，按逗号切分并去掉空白；空 token 被忽略
func ParseTokens(cell string) []string {
	lower := cases.Lower(language.Und).String(listPunct.Replace(cell))

	var tokens []string
	for _, part := range strings.Split(lower, ",") {
		tok := strings.TrimSpace(part)
		if tok == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
