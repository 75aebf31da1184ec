package web

import (
	"time"

	"AirbnbCleaner/src/processor"
	"AirbnbCleaner/src/runner"
)

// RunPreview 一次清洗的摘要
type RunPreview struct {
	RunID     string         `json:"run_id"`
	Trigger   string         `json:"trigger"`
	StartedAt time.Time      `json:"started_at"`
	Duration  string         `json:"duration"`
	Tables    []TablePreview `json:"tables"`
	OnlyTrain []string       `json:"only_train,omitempty"`
	OnlyTest  []string       `json:"only_test,omitempty"`
}

// TablePreview 表的前几行和清洗统计。单元格以文本输出
type TablePreview struct {
	Name    string         `json:"name"`
	Path    string         `json:"path"`
	Rows    int            `json:"rows"`
	Columns []string       `json:"columns"`
	Head    [][]string     `json:"head"`
	Report  *ReportSummary `json:"report,omitempty"`
}

// ReportSummary processor.Report 的 JSON 形式
type ReportSummary struct {
	RowsIn           int            `json:"rows_in"`
	RowsOut          int            `json:"rows_out"`
	ColsIn           int            `json:"cols_in"`
	ColsOut          int            `json:"cols_out"`
	DroppedColumns   []string       `json:"dropped_columns"`
	IndicatorColumns []string       `json:"indicator_columns"`
	RowsFiltered     int            `json:"rows_filtered"`
	Coerced          map[string]int `json:"coerced"`
	Imputed          map[string]int `json:"imputed"`
	Unmapped         map[string]int `json:"unmapped"`
	Skipped          []string       `json:"skipped"`
	Duration         string         `json:"duration"`
}

func NewRunPreview(res *runner.Result) RunPreview {
	p := RunPreview{
		RunID:     res.RunID,
		Trigger:   res.Trigger,
		StartedAt: res.StartedAt,
		Duration:  res.Duration.String(),
		OnlyTrain: res.OnlyTrain,
		OnlyTest:  res.OnlyTest,
	}
	for _, tr := range []*runner.TableResult{res.Train, res.Test} {
		if tr != nil {
			p.Tables = append(p.Tables, NewTablePreview(tr))
		}
	}
	return p
}

func NewTablePreview(tr *runner.TableResult) TablePreview {
	p := TablePreview{
		Name:    tr.Name,
		Path:    tr.Path,
		Rows:    tr.Table.Nrow(),
		Columns: tr.Table.DF.Names(),
	}
	// Records 第一行为列名
	if records := tr.Preview.Records(); len(records) > 1 {
		p.Head = records[1:]
	}
	if tr.Report != nil {
		p.Report = summarize(tr.Report)
	}
	return p
}

func summarize(r *processor.Report) *ReportSummary {
	return &ReportSummary{
		RowsIn:           r.RowsIn,
		RowsOut:          r.RowsOut,
		ColsIn:           r.ColsIn,
		ColsOut:          r.ColsOut,
		DroppedColumns:   r.DroppedColumns,
		IndicatorColumns: r.IndicatorColumns,
		RowsFiltered:     r.RowsFiltered,
		Coerced:          r.Coerced,
		Imputed:          r.Imputed,
		Unmapped:         r.Unmapped,
		Skipped:          r.Skipped,
		Duration:         r.Duration.String(),
	}
}
