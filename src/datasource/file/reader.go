// reader.go
package file

import (
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoHeader 文件为空，没有标题行
var ErrNoHeader = errors.New("no header row")

// Options 读取选项
type Options struct {
	Encoding  string   // 文本编码，空值为 utf-8
	SheetName string   // xlsx 工作表，空值取第一个
	HeaderRow int      // xlsx 标题行(从0开始)
	NAValues  []string // 视为缺失的取值
}

// FileInfo 文件信息结构体
type FileInfo struct {
	Name     string
	FullPath string
	ModTime  time.Time
	Size     int64
	Checksum string
}

// Stat 读取文件信息并计算 md5，用于判断内容是否变化
func Stat(path string) (*FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("checksum %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &FileInfo{
		Name:     info.Name(),
		FullPath: abs,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
		Checksum: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// IsXLSX 是否按 xlsx 读取
func IsXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// Load 按扩展名读取表格：.xlsx 走 tealeg/xlsx，其余按 CSV 处理。
// 所有列读为文本，NAValues 中的取值记为缺失。
func Load(path string, opts Options) (dataframe.DataFrame, error) {
	switch {
	case IsXLSX(path):
		return ReadXLSX(path, opts)
	default:
		f, err := os.Open(path)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()

		df, err := ReadCSV(f, opts)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("read %s: %w", path, err)
		}
		return df, nil
	}
}

// ReadCSV 读取逗号分隔文本，先按 Encoding 解码
func ReadCSV(r io.Reader, opts Options) (dataframe.DataFrame, error) {
	dec, err := Decoder(opts.Encoding)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parse csv: %w", err)
	}
	return fromRecords(records, opts.NAValues)
}

// Decoder 返回编码对应的解码器；utf-8 时去掉 BOM
func Decoder(name string) (transform.Transformer, error) {
	var enc encoding.Encoding
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "gbk":
		enc = simplifiedchinese.GBK
	case "gb18030":
		enc = simplifiedchinese.GB18030
	case "latin1", "iso-8859-1":
		enc = charmap.ISO8859_1
	case "windows-1252":
		enc = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc.NewDecoder(), nil
}

// fromRecords 第一行为标题行。只有标题行时返回零行的文本表
func fromRecords(records [][]string, naValues []string) (dataframe.DataFrame, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return dataframe.DataFrame{}, ErrNoHeader
	}

	// 补齐或截断到标题列数
	width := len(records[0])
	for i, row := range records[1:] {
		switch {
		case len(row) < width:
			records[i+1] = append(row, make([]string, width-len(row))...)
		case len(row) > width:
			records[i+1] = row[:width]
		}
	}

	if len(records) == 1 {
		cols := make([]series.Series, width)
		for i, name := range records[0] {
			cols[i] = series.New([]string{}, series.String, name)
		}
		df := dataframe.New(cols...)
		return df, df.Err
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	return df, df.Err
}

// ReadXLSX 使用tealeg/xlsx读取工作表
func ReadXLSX(filePath string, opts Options) (dataframe.DataFrame, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}
	sheet := xlFile.Sheets[0]
	if opts.SheetName != "" {
		s, ok := xlFile.Sheet[opts.SheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("sheet name %s 获取失败", opts.SheetName)
		}
		sheet = s
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet, opts.HeaderRow, opts.NAValues)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame，headerRow 之前的行被忽略
func convertSheetToDataFrame(sheet *xlsx.Sheet, headerRow int, naValues []string) (dataframe.DataFrame, error) {
	if len(sheet.Rows) <= headerRow {
		return dataframe.DataFrame{}, ErrNoHeader
	}

	records := make([][]string, 0, len(sheet.Rows)-headerRow)
	for _, row := range sheet.Rows[headerRow:] {
		if row == nil {
			records = append(records, nil)
			continue
		}
		values := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			values[i] = cell.Value
		}
		records = append(records, values)
	}
	return fromRecords(records, naValues)
}
