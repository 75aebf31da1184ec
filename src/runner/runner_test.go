package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"AirbnbCleaner/src/config"
	"AirbnbCleaner/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const trainCSV = `id,price,extra_people,amenities,host_since,host_is_superhost,room_type,square_feet
1,"$1,200.00",$10.00,"{""Wifi"",Kitchen}",2015-06-01,t,Entire home/apt,
2,"$2,500.00",$0.00,{Kitchen},2016-01-01,f,Private room,
3,$80.00,$5.00,{Wifi},,t,,400
4,$150.00,,{},2017-02-03,x,Private room,
`

const testCSV = `id,price,extra_people,amenities,host_since,host_is_superhost,room_type
10,$99.00,$0.00,{TV},2018-01-01,f,Shared room
11,$3000.00,$0.00,{TV},2018-01-02,t,Shared room
`

func setup(t *testing.T) (*config.Config, *config.DataConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg, dcfg := config.Default()
	cfg.TrainFile = filepath.Join(dir, "train.csv")
	cfg.TestFile = filepath.Join(dir, "test.csv")
	cfg.PreviewRows = 2
	require.NoError(t, os.WriteFile(cfg.TrainFile, []byte(trainCSV), 0644))
	require.NoError(t, os.WriteFile(cfg.TestFile, []byte(testCSV), 0644))
	return cfg, dcfg
}

func TestRun(t *testing.T) {
	cfg, dcfg := setup(t)
	cfg.PreviewXLSX = filepath.Join(t.TempDir(), "preview.xlsx")
	var out bytes.Buffer
	r := New(cfg, dcfg, storage.NewNop(), &out)

	res, err := r.Run(context.Background(), TriggerOnce)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, TriggerOnce, res.Trigger)
	assert.Same(t, res, r.Last())

	train := res.Train
	assert.Equal(t, 3, train.Table.Nrow())
	assert.Equal(t, []string{"square_feet"}, train.Report.DroppedColumns)
	assert.Equal(t, 1, train.Report.Unmapped["x"])
	assert.Equal(t, 2, train.Preview.Nrow())

	test := res.Test
	require.NotNil(t, test.Report)
	assert.Equal(t, 1, test.Table.Nrow())

	// 训练集有 kitchen/wifi，测试集只有 tv
	assert.Equal(t, []string{"amen_kitchen", "amen_wifi"}, res.OnlyTrain)
	assert.Equal(t, []string{"amen_tv"}, res.OnlyTest)

	assert.Contains(t, out.String(), "train ("+cfg.TrainFile+")")
	assert.Contains(t, out.String(), "test ("+cfg.TestFile+")")

	f, err := excelize.OpenFile(cfg.PreviewXLSX)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"train", "test"}, f.GetSheetList())
	rows, err := f.GetRows("train")
	require.NoError(t, err)
	assert.Len(t, rows, 3) // 标题 + 2 行
}

func TestRun_SkipCleanTest(t *testing.T) {
	cfg, dcfg := setup(t)
	clean := false
	cfg.CleanTest = &clean
	r := New(cfg, dcfg, storage.NewNop(), &bytes.Buffer{})

	res, err := r.Run(context.Background(), TriggerOnce)
	require.NoError(t, err)

	assert.Nil(t, res.Test.Report)
	assert.Equal(t, 2, res.Test.Table.Nrow())
	assert.Empty(t, res.OnlyTrain)
	assert.Empty(t, res.OnlyTest)
}

func TestRun_LoadError(t *testing.T) {
	cfg, dcfg := setup(t)
	require.NoError(t, os.Remove(cfg.TestFile))
	r := New(cfg, dcfg, storage.NewNop(), &bytes.Buffer{})

	res, err := r.Run(context.Background(), TriggerOnce)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "test.csv")
	assert.Nil(t, r.Last())
}

func TestRun_Canceled(t *testing.T) {
	cfg, dcfg := setup(t)
	r := New(cfg, dcfg, storage.NewNop(), &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, TriggerCron)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Busy(t *testing.T) {
	cfg, dcfg := setup(t)
	r := New(cfg, dcfg, storage.NewNop(), &bytes.Buffer{})

	r.running.Lock()
	_, err := r.Run(context.Background(), TriggerWatch)
	r.running.Unlock()

	assert.ErrorIs(t, err, ErrBusy)
}

func TestDiffColumns(t *testing.T) {
	a, b := diffColumns([]string{"id", "x", "y"}, []string{"id", "z", "y"})
	assert.Equal(t, []string{"x"}, a)
	assert.Equal(t, []string{"z"}, b)

	a, b = diffColumns([]string{"id"}, []string{"id"})
	assert.Nil(t, a)
	assert.Nil(t, b)
}

type fakeNotifier struct {
	titles   []string
	contents []string
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, title, content string) error {
	f.titles = append(f.titles, title)
	f.contents = append(f.contents, content)
	return f.err
}

func TestRun_Notify(t *testing.T) {
	cfg, dcfg := setup(t)
	r := New(cfg, dcfg, storage.NewNop(), &bytes.Buffer{})
	n := &fakeNotifier{}
	r.SetNotifier(n)

	res, err := r.Run(context.Background(), TriggerCron)
	require.NoError(t, err)
	require.Equal(t, []string{"清洗完成"}, n.titles)
	assert.Contains(t, n.contents[0], res.RunID)
	assert.Contains(t, n.contents[0], "- train: rows 4->3")
	assert.Contains(t, n.contents[0], "- test: rows 2->")

	// 推送失败不影响运行结果
	n.err = assert.AnError
	_, err = r.Run(context.Background(), TriggerCron)
	assert.NoError(t, err)

	require.NoError(t, os.Remove(cfg.TrainFile))
	_, err = r.Run(context.Background(), TriggerCron)
	require.Error(t, err)
	assert.Equal(t, "清洗失败", n.titles[2])
	assert.Contains(t, n.contents[2], "train.csv")
}
