package processor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"AirbnbCleaner/src/config"
)

// Step 清洗步骤。步骤不返回错误：单元格问题记为缺失，缺少的列直接跳过
type Step interface {
	Name() string
	Apply(t Table, r *Report) Table
}

// Report 一次清洗的统计信息
type Report struct {
	RowsIn  int
	RowsOut int
	ColsIn  int
	ColsOut int

	DroppedColumns   []string       // 稀疏列
	Coerced          map[string]int // 列 -> 转为缺失的单元格数
	IndicatorColumns []string       // 新增的指示列
	ReplacedColumns  []string       // 与指示列同名、被指示列替换的原有列
	RowsFiltered     int            // 异常值过滤掉的行数
	Imputed          map[string]int // 列 -> 填充的单元格数
	Unmapped         map[string]int // 布尔列中未识别的取值 -> 次数
	Skipped          []string       // 因缺列跳过的步骤
	StepDurations    map[string]time.Duration
	Duration         time.Duration
}

func newReport() *Report {
	return &Report{
		Coerced:       make(map[string]int),
		Imputed:       make(map[string]int),
		Unmapped:      make(map[string]int),
		StepDurations: make(map[string]time.Duration),
	}
}

func (r *Report) skip(step, column string) {
	r.Skipped = append(r.Skipped, fmt.Sprintf("%s(%s)", step, column))
}

// TotalCoerced 转为缺失的单元格总数
func (r *Report) TotalCoerced() int {
	total := 0
	for _, n := range r.Coerced {
		total += n
	}
	return total
}

// TotalImputed 填充的单元格总数
func (r *Report) TotalImputed() int {
	total := 0
	for _, n := range r.Imputed {
		total += n
	}
	return total
}

// String 单行摘要，用于日志
func (r *Report) String() string {
	unmapped := make([]string, 0, len(r.Unmapped))
	for v, n := range r.Unmapped {
		unmapped = append(unmapped, fmt.Sprintf("%q=%d", v, n))
	}
	sort.Strings(unmapped)

	return fmt.Sprintf(
		"rows %d->%d, cols %d->%d, dropped=%d, indicators=%d, filtered=%d, coerced=%d, imputed=%d, unmapped=[%s], skipped=[%s], took %v",
		r.RowsIn, r.RowsOut, r.ColsIn, r.ColsOut,
		len(r.DroppedColumns), len(r.IndicatorColumns), r.RowsFiltered,
		r.TotalCoerced(), r.TotalImputed(),
		strings.Join(unmapped, ","), strings.Join(r.Skipped, ","), r.Duration)
}

// Cleaner 按固定顺序执行清洗步骤
type Cleaner struct {
	steps []Step
}

// NewCleaner 按清洗规则构建默认步骤
func NewCleaner(dcfg *config.DataConfig) *Cleaner {
	return &Cleaner{steps: []Step{
		PruneSparse{MinNonMissing: dcfg.MinFraction()},
		NormalizeCurrency{Columns: dcfg.CurrencyColumns},
		ExpandMultiValued{Column: dcfg.AmenitiesColumn, Prefix: dcfg.AmenitiesPrefix},
		ParseTemporal{Columns: dcfg.DateColumns, Layouts: dcfg.DateLayouts},
		FilterOutliers{Column: dcfg.PriceColumn, Threshold: dcfg.MaxPrice(), KeepMissing: dcfg.KeepMissingPrice},
		ImputeNumeric{},
		ImputeTemporal{Placeholder: dcfg.TextPlaceholder},
		ImputeText{Placeholder: dcfg.TextPlaceholder},
		MapBoolean{Column: dcfg.SuperhostColumn},
	}}
}

// NewCleanerWithSteps 使用自定义步骤
func NewCleanerWithSteps(steps ...Step) *Cleaner {
	return &Cleaner{steps: steps}
}

// StepNames 步骤名称，按执行顺序
func (c *Cleaner) StepNames() []string {
	names := make([]string, len(c.steps))
	for i, s := range c.steps {
		names[i] = s.Name()
	}
	return names
}

// Clean 执行全部步骤，返回清洗后的表和统计信息
func (c *Cleaner) Clean(t Table) (Table, *Report) {
	start := time.Now()
	r := newReport()
	r.RowsIn, r.ColsIn = t.Nrow(), t.Ncol()

	cur := t.Derive(t.DF)
	for _, step := range c.steps {
		t0 := time.Now()
		cur = step.Apply(cur, r)
		r.StepDurations[step.Name()] = time.Since(t0)
	}

	r.RowsOut, r.ColsOut = cur.Nrow(), cur.Ncol()
	r.Duration = time.Since(start)
	return cur, r
}
