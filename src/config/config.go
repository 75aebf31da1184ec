package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值，与清洗脚本中的固定字面量保持一致
const (
	DefaultTrainFile       = "train.csv"
	DefaultTestFile        = "test.csv"
	DefaultMinNonMissing   = 0.75
	DefaultPriceThreshold  = 2000.0
	DefaultAmenitiesPrefix = "amen_"
	DefaultPlaceholder     = "Unknown"
	DefaultPreviewRows     = 5
)

// Config 运行时配置
type Config struct {
	TrainFile   string `json:"train_file" yaml:"train_file"`     // 训练集文件
	TestFile    string `json:"test_file" yaml:"test_file"`       // 测试集文件
	Encoding    string `json:"encoding" yaml:"encoding"`         // 输入文件编码
	SheetName   string `json:"sheet_name" yaml:"sheet_name"`     // xlsx 输入的工作表名
	HeaderRow   int    `json:"header_row" yaml:"header_row"`     // xlsx 输入的标题行(从0开始)
	PreviewRows int    `json:"preview_rows" yaml:"preview_rows"` // 打印的行数
	PreviewXLSX string `json:"preview_xlsx" yaml:"preview_xlsx"` // 预览另存为xlsx，为空则不导出
	CleanTest   *bool  `json:"clean_test" yaml:"clean_test"`     // 是否同样清洗测试集

	LogName    string `json:"log_name" yaml:"log_name"`
	LogLevel   string `json:"log_level" yaml:"log_level"`
	LogMaxSize string `json:"log_max_size" yaml:"log_max_size"` // 例如 "10 * 1024 * 1024"

	Watch    bool     `json:"watch" yaml:"watch"`         // 输入文件变化时重新清洗
	Debounce Duration `json:"debounce" yaml:"debounce"`   // 文件事件合并间隔
	Schedule string   `json:"schedule" yaml:"schedule"`   // cron 表达式，例如 "@every 1h"
	HTTPAddr string   `json:"http_addr" yaml:"http_addr"` // 诊断服务地址，为空则不启动

	NotifyWebhook string `json:"notify_webhook" yaml:"notify_webhook"` // 钉钉机器人 webhook，为空则不推送
	NotifySecret  string `json:"notify_secret" yaml:"notify_secret"`   // 机器人加签密钥
}

// DataConfig 清洗规则配置
type DataConfig struct {
	MinNonMissing    *float64 `json:"min_non_missing" yaml:"min_non_missing"` // 0 表示保留所有列
	CurrencyColumns  []string `json:"currency_columns" yaml:"currency_columns"`
	DateColumns      []string `json:"date_columns" yaml:"date_columns"`
	DateLayouts      []string `json:"date_layouts" yaml:"date_layouts"`
	AmenitiesColumn  string   `json:"amenities_column" yaml:"amenities_column"`
	AmenitiesPrefix  string   `json:"amenities_prefix" yaml:"amenities_prefix"`
	PriceColumn      string   `json:"price_column" yaml:"price_column"`
	PriceThreshold   *float64 `json:"price_threshold" yaml:"price_threshold"`
	KeepMissingPrice bool     `json:"keep_missing_price" yaml:"keep_missing_price"`
	SuperhostColumn  string   `json:"superhost_column" yaml:"superhost_column"`
	TextPlaceholder  string   `json:"text_placeholder" yaml:"text_placeholder"`
	NAValues         []string `json:"na_values" yaml:"na_values"`
}

var supportedEncodings = map[string]bool{
	"":             true,
	"utf-8":        true,
	"utf8":         true,
	"gbk":          true,
	"gb18030":      true,
	"latin1":       true,
	"iso-8859-1":   true,
	"windows-1252": true,
}

// LoadConfig 读取运行时配置和清洗规则配置。
// 文件不存在时使用默认值；文件存在但解析失败时返回错误。
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	cfg, dcfg, err := loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		return nil, nil, err
	}

	cfg.ApplyDefaults()
	dcfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("配置校验失败: %w", err)
	}
	if err := dcfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("数据配置校验失败: %w", err)
	}
	return cfg, dcfg, nil
}

// Default 返回全部使用默认值的配置
func Default() (*Config, *DataConfig) {
	cfg := &Config{}
	dcfg := &DataConfig{}
	cfg.ApplyDefaults()
	dcfg.ApplyDefaults()
	return cfg, dcfg
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configFile, configData, cfgChan, errChan)
	go parseDataConfig(dataConfigFile, dataConfigData, dcfgChan, errChan)

	return waitForResults(cfgChan, dcfgChan, errChan)
}

// readFile 读取文件，文件不存在时返回 nil 数据
func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

// unmarshal 按扩展名选择 JSON 或 YAML
func unmarshal(path string, data []byte, v interface{}) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}

func parseConfig(path string, data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if len(data) > 0 {
		if err := unmarshal(path, data, &cfg); err != nil {
			errChan <- fmt.Errorf("解析Config失败: %w", err)
			return
		}
	}
	resultChan <- &cfg
}

func parseDataConfig(path string, data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if len(data) > 0 {
		if err := unmarshal(path, data, &dcfg); err != nil {
			errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
			return
		}
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// ApplyDefaults 填充未设置的字段
func (c *Config) ApplyDefaults() {
	if c.TrainFile == "" {
		c.TrainFile = DefaultTrainFile
	}
	if c.TestFile == "" {
		c.TestFile = DefaultTestFile
	}
	if c.PreviewRows == 0 {
		c.PreviewRows = DefaultPreviewRows
	}
	if c.CleanTest == nil {
		clean := true
		c.CleanTest = &clean
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.Debounce <= 0 {
		c.Debounce = Duration(500 * time.Millisecond)
	}
}

// ShouldCleanTest 测试集是否参与清洗
func (c *Config) ShouldCleanTest() bool {
	return c.CleanTest == nil || *c.CleanTest
}

// Validate 检查运行时配置
func (c *Config) Validate() error {
	if c.PreviewRows < 0 {
		return fmt.Errorf("preview_rows 不能为负数, got %d", c.PreviewRows)
	}
	if c.HeaderRow < 0 {
		return fmt.Errorf("header_row 不能为负数, got %d", c.HeaderRow)
	}
	if !supportedEncodings[strings.ToLower(c.Encoding)] {
		return fmt.Errorf("不支持的编码 %q", c.Encoding)
	}
	if EvalSize(c.LogMaxSize) <= 0 {
		return fmt.Errorf("log_max_size 无效: %q", c.LogMaxSize)
	}
	if c.NotifyWebhook != "" && !strings.HasPrefix(c.NotifyWebhook, "http://") && !strings.HasPrefix(c.NotifyWebhook, "https://") {
		return fmt.Errorf("notify_webhook 必须是 http(s) 地址: %q", c.NotifyWebhook)
	}
	return nil
}

// ApplyDefaults 填充未设置的清洗规则
func (dc *DataConfig) ApplyDefaults() {
	if dc.MinNonMissing == nil {
		dc.MinNonMissing = Float(DefaultMinNonMissing)
	}
	if dc.CurrencyColumns == nil {
		dc.CurrencyColumns = []string{"price", "extra_people"}
	}
	if dc.DateColumns == nil {
		dc.DateColumns = []string{"host_since", "first_review", "last_review"}
	}
	if len(dc.DateLayouts) == 0 {
		dc.DateLayouts = []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05Z07:00",
			"2006/01/02",
			"2006/01/02 15:04:05",
			"01/02/2006",
			"1/2/2006",
			"01-02-2006",
			"Jan 2, 2006",
			"2 Jan 2006",
			"January 2, 2006",
			"20060102",
		}
	}
	if dc.AmenitiesColumn == "" {
		dc.AmenitiesColumn = "amenities"
	}
	if dc.AmenitiesPrefix == "" {
		dc.AmenitiesPrefix = DefaultAmenitiesPrefix
	}
	if dc.PriceColumn == "" {
		dc.PriceColumn = "price"
	}
	if dc.PriceThreshold == nil {
		dc.PriceThreshold = Float(DefaultPriceThreshold)
	}
	if dc.SuperhostColumn == "" {
		dc.SuperhostColumn = "host_is_superhost"
	}
	if dc.TextPlaceholder == "" {
		dc.TextPlaceholder = DefaultPlaceholder
	}
	if dc.NAValues == nil {
		dc.NAValues = []string{"", "NA", "NaN", "N/A", "nan", "null", "NULL", "<nil>"}
	}
}

// Validate 检查清洗规则
func (dc *DataConfig) Validate() error {
	if v := dc.MinFraction(); v < 0 || v > 1 {
		return fmt.Errorf("min_non_missing 必须在 [0,1] 之间, got %v", v)
	}
	if v := dc.MaxPrice(); v <= 0 {
		return fmt.Errorf("price_threshold 必须为正数, got %v", v)
	}
	return nil
}

// MinFraction 列保留所需的非缺失比例，未设置时为默认值
func (dc *DataConfig) MinFraction() float64 {
	if dc.MinNonMissing == nil {
		return DefaultMinNonMissing
	}
	return *dc.MinNonMissing
}

// MaxPrice 价格上限，未设置时为默认值
func (dc *DataConfig) MaxPrice() float64 {
	if dc.PriceThreshold == nil {
		return DefaultPriceThreshold
	}
	return *dc.PriceThreshold
}

// Float 返回 v 的指针，便于在代码中设置可选数值
func Float(v float64) *float64 {
	return &v
}

// EvalSize 解析 "10 * 1024 * 1024" 形式的大小表达式
func EvalSize(expr string) int64 {
	parts := strings.Split(expr, "*")
	var result int64 = 1
	for _, part := range parts {
		var num int64
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &num); err != nil {
			return 0
		}
		result *= num
	}
	return result
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON/YAML中 "500ms"、"5m" 形式的配置
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.parse(s)
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML 实现yaml.Unmarshaler接口
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
