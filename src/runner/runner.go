package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"AirbnbCleaner/src/config"
	"AirbnbCleaner/src/datasource/file"
	"AirbnbCleaner/src/metrics"
	"AirbnbCleaner/src/processor"
	"AirbnbCleaner/src/storage"
	"AirbnbCleaner/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 触发方式
const (
	TriggerOnce  = "once"
	TriggerCron  = "cron"
	TriggerWatch = "watch"
	TriggerHTTP  = "http"
)

// ErrBusy 上一次清洗还没结束
var ErrBusy = errors.New("a cleaning run is already in progress")

// TableResult 一张表的清洗结果
type TableResult struct {
	Name    string
	Path    string
	Table   processor.Table
	Report  *processor.Report // 未清洗时为 nil
	Preview dataframe.DataFrame
}

// Result 一次运行的结果
type Result struct {
	RunID     string
	Trigger   string
	StartedAt time.Time
	Duration  time.Duration
	Train     *TableResult
	Test      *TableResult

	// 清洗后只在一张表中出现的列
	OnlyTrain []string
	OnlyTest  []string
}

// Notifier 推送运行结果，例如钉钉机器人
type Notifier interface {
	Notify(ctx context.Context, title, content string) error
}

// Runner 加载训练集/测试集，清洗并输出预览。同一时间只允许一次运行
type Runner struct {
	cfg  *config.Config
	dcfg *config.DataConfig
	log  *storage.Logger
	out  io.Writer

	notifier Notifier

	running sync.Mutex
	mu      sync.RWMutex
	last    *Result
}

func New(cfg *config.Config, dcfg *config.DataConfig, log *storage.Logger, out io.Writer) *Runner {
	return &Runner{cfg: cfg, dcfg: dcfg, log: log, out: out}
}

// SetNotifier 设置运行结束后的推送，nil 表示不推送
func (r *Runner) SetNotifier(n Notifier) {
	r.notifier = n
}

// Last 最近一次成功运行的结果
func (r *Runner) Last() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Inputs 输入文件路径
func (r *Runner) Inputs() []string {
	return []string{r.cfg.TrainFile, r.cfg.TestFile}
}

// Run 执行一次完整的清洗。加载失败返回错误，单元格问题只计入报告
func (r *Runner) Run(ctx context.Context, trigger string) (*Result, error) {
	if !r.running.TryLock() {
		metrics.RunsTotal.WithLabelValues(trigger, "busy").Inc()
		return nil, ErrBusy
	}
	defer r.running.Unlock()

	res := &Result{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
	log := r.log.With(zap.String("run_id", res.RunID), zap.String("trigger", trigger))
	log.Info("开始清洗",
		zap.String("train", r.cfg.TrainFile), zap.String("test", r.cfg.TestFile))

	if err := r.run(ctx, res, log); err != nil {
		metrics.RunsTotal.WithLabelValues(trigger, "error").Inc()
		log.Error("清洗失败", zap.Error(err))
		r.notify(ctx, log, "清洗失败", fmt.Sprintf("- run_id: %s\n- trigger: %s\n- error: %v", res.RunID, trigger, err))
		return nil, err
	}

	res.Duration = time.Since(res.StartedAt)
	metrics.RunsTotal.WithLabelValues(trigger, "ok").Inc()
	metrics.RunDuration.Observe(res.Duration.Seconds())
	metrics.LastSuccess.SetToCurrentTime()

	r.mu.Lock()
	r.last = res
	r.mu.Unlock()

	log.Info("清洗完成", zap.Duration("took", res.Duration))
	r.notify(ctx, log, "清洗完成", summary(res))
	return res, nil
}

// notify 推送失败只记日志，不影响运行结果
func (r *Runner) notify(ctx context.Context, log *storage.Logger, title, content string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, title, content); err != nil {
		log.Warning("推送运行结果失败", zap.Error(err))
	}
}

func summary(res *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- run_id: %s\n- trigger: %s\n- took: %s\n", res.RunID, res.Trigger, res.Duration.Round(time.Millisecond))
	for _, tr := range []*TableResult{res.Train, res.Test} {
		if tr.Report == nil {
			fmt.Fprintf(&b, "- %s: 未清洗 (%d 行)\n", tr.Name, tr.Table.DF.Nrow())
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", tr.Name, tr.Report.String())
	}
	return b.String()
}

func (r *Runner) run(ctx context.Context, res *Result, log *storage.Logger) error {
	// 1. 加载
	train, test, err := r.load(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// 2. 清洗
	cleaner := processor.NewCleaner(r.dcfg)
	res.Train = r.clean(cleaner, "train", r.cfg.TrainFile, train, log)
	if r.cfg.ShouldCleanTest() {
		res.Test = r.clean(cleaner, "test", r.cfg.TestFile, test, log)
		res.OnlyTrain, res.OnlyTest = diffColumns(res.Train.Table.DF.Names(), res.Test.Table.DF.Names())
		if len(res.OnlyTrain) > 0 || len(res.OnlyTest) > 0 {
			log.Warning("训练集和测试集清洗后的列不一致",
				zap.Strings("only_train", res.OnlyTrain), zap.Strings("only_test", res.OnlyTest))
		}
	} else {
		res.Test = &TableResult{Name: "test", Path: r.cfg.TestFile, Table: test}
		res.Test.Preview = test.Head(r.cfg.PreviewRows)
	}

	// 3. 打印预览
	for _, tr := range []*TableResult{res.Train, res.Test} {
		fmt.Fprintf(r.out, "%s (%s)\n%v\n", tr.Name, tr.Path, tr.Preview)
	}

	// 4. 导出预览
	if r.cfg.PreviewXLSX != "" {
		err := utils.SaveToExcel(r.cfg.PreviewXLSX,
			utils.Sheet{Name: res.Train.Name, DF: res.Train.Preview},
			utils.Sheet{Name: res.Test.Name, DF: res.Test.Preview},
		)
		if err != nil {
			return fmt.Errorf("导出预览 %s: %w", r.cfg.PreviewXLSX, err)
		}
		log.Info("预览已保存", zap.String("path", r.cfg.PreviewXLSX))
	}
	return nil
}

// load 并发读取训练集和测试集，任一失败即返回
func (r *Runner) load(ctx context.Context) (processor.Table, processor.Table, error) {
	opts := file.Options{
		Encoding:  r.cfg.Encoding,
		SheetName: r.cfg.SheetName,
		HeaderRow: r.cfg.HeaderRow,
		NAValues:  r.dcfg.NAValues,
	}

	paths := []string{r.cfg.TrainFile, r.cfg.TestFile}
	tables := make([]processor.Table, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			df, err := file.Load(path, opts)
			if err != nil {
				errs[i] = fmt.Errorf("加载 %s: %w", filepath.Base(path), err)
				return
			}
			tables[i] = processor.NewTable(df, r.dcfg)
			tables[i].ExcelDates = file.IsXLSX(path)
		}(i, path)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return processor.Table{}, processor.Table{}, err
	}
	return tables[0], tables[1], nil
}

func (r *Runner) clean(c *processor.Cleaner, name, path string, t processor.Table, log *storage.Logger) *TableResult {
	cleaned, report := c.Clean(t)
	log.Info(name+" 清洗结果: "+report.String(), zap.String("table", name))
	if len(report.Unmapped) > 0 {
		log.Warning("布尔列存在未识别的取值，已记为 0",
			zap.String("table", name), zap.Any("unmapped", report.Unmapped))
	}
	observe(name, report)

	return &TableResult{
		Name:    name,
		Path:    path,
		Table:   cleaned,
		Report:  report,
		Preview: cleaned.Head(r.cfg.PreviewRows),
	}
}

func observe(table string, report *processor.Report) {
	metrics.Rows.WithLabelValues(table, "in").Set(float64(report.RowsIn))
	metrics.Rows.WithLabelValues(table, "out").Set(float64(report.RowsOut))
	metrics.Columns.WithLabelValues(table, "in").Set(float64(report.ColsIn))
	metrics.Columns.WithLabelValues(table, "out").Set(float64(report.ColsOut))
	metrics.CellsTotal.WithLabelValues(table, "coerced").Add(float64(report.TotalCoerced()))
	metrics.CellsTotal.WithLabelValues(table, "imputed").Add(float64(report.TotalImputed()))
	unmapped := 0
	for _, n := range report.Unmapped {
		unmapped += n
	}
	metrics.CellsTotal.WithLabelValues(table, "unmapped").Add(float64(unmapped))
	metrics.RowsFilteredTotal.WithLabelValues(table).Add(float64(report.RowsFiltered))
	for step, d := range report.StepDurations {
		metrics.StepDuration.WithLabelValues(step).Observe(d.Seconds())
	}
}

// diffColumns 返回只在 a 中和只在 b 中出现的列，保持原顺序
func diffColumns(a, b []string) (onlyA, onlyB []string) {
	for _, name := range a {
		if !utils.Contains(b, name) {
			onlyA = append(onlyA, name)
		}
	}
	for _, name := range b {
		if !utils.Contains(a, name) {
			onlyB = append(onlyB, name)
		}
	}
	return onlyA, onlyB
}
