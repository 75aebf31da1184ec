package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// DateLayout 统一的日期输出格式
const DateLayout = "2006-01-02"

// Excel 序列日期，例如 43831 或 43831.5
var excelSerial = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// IsMissing 判断元素是否缺失(NA 或 NaN 浮点)
func IsMissing(e series.Element) bool {
	if e == nil || e.IsNA() {
		return true
	}
	if e.Type() == series.Float && math.IsNaN(e.Float()) {
		return true
	}
	return false
}

// ParseDate 依次尝试 layouts 解析日期
func ParseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseExcelDate 解析 Excel 序列日期，例如 43831 或 43831.5
func ParseExcelDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !excelSerial.MatchString(s) {
		return time.Time{}, false
	}
	days, err := strconv.ParseFloat(s, 64)
	if err != nil || days <= 0 || days >= 2958466 { // 9999-12-31
		return time.Time{}, false
	}
	return ExcelToTime(days), true
}

// ExcelToTime excel时间类型转time.Time类型
func ExcelToTime(excelDays float64) time.Time {
	// Excel 1900 闰年错误：60 之后的序列号整体偏移一天
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	if excelDays < 60 {
		base = base.AddDate(0, 0, 1)
	}
	days := int(excelDays)
	fraction := excelDays - float64(days)

	return base.AddDate(0, 0, days).
		Add(time.Duration(86400*fraction*1e9) * time.Nanosecond)
}

// Sheet 导出到 Excel 的一个工作表
type Sheet struct {
	Name string
	DF   dataframe.DataFrame
}

// SaveToExcel 将多个DataFrame保存为同一个Excel文件的多个工作表，缺失值写为空单元格
func SaveToExcel(filePath string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("没有需要保存的工作表")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		name := sh.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		if i == 0 {
			// 重命名默认工作表
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("重命名工作表失败: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("创建工作表失败: %w", err)
		}
		if err := writeSheet(f, name, sh.DF); err != nil {
			return fmt.Errorf("写入工作表 %s 失败: %w", name, err)
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheetName string, df dataframe.DataFrame) error {
	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return err
		}
	}

	// 写入数据
	for colIdx, colName := range colNames {
		col := df.Col(colName)
		for rowIdx := 0; rowIdx < col.Len(); rowIdx++ {
			el := col.Elem(rowIdx)
			if IsMissing(el) {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, el.Val()); err != nil {
				return err
			}
		}
	}
	return nil
}
