package utils

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var layouts = []string{"2006-01-02", "01/02/2006", "Jan 2, 2006"}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2019-07-08", "2019-07-08", true},
		{" 07/08/2019 ", "2019-07-08", true},
		{"Jul 8, 2019", "2019-07-08", true},
		{"43654", "", false},
		{"2019-13-45", "", false},
		{"yesterday", "", false},
		{"", "", false},
		{"0", "", false},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, ok := ParseDate(c.in, layouts)
			assert.Equal(t, c.ok, ok)
			if c.ok {
				assert.Equal(t, c.want, got.Format(DateLayout))
			}
		})
	}
}

func TestParseExcelDate(t *testing.T) {
	got, ok := ParseExcelDate("43654")
	require.True(t, ok)
	assert.Equal(t, "2019-07-08", got.Format(DateLayout))

	got, ok = ParseExcelDate(" 43654.75 ")
	require.True(t, ok)
	assert.Equal(t, "2019-07-08", got.Format(DateLayout))

	for _, s := range []string{"", "0", "-5", "2019-07-08", "3000000"} {
		_, ok := ParseExcelDate(s)
		assert.False(t, ok, s)
	}
}

func TestExcelToTime(t *testing.T) {
	assert.Equal(t, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), ExcelToTime(1))
	assert.Equal(t, time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC), ExcelToTime(61))
	assert.Equal(t, time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC), ExcelToTime(43831.5))
}

func TestIsMissing(t *testing.T) {
	s := series.New([]string{"a", "NaN"}, series.String, "s")
	assert.False(t, IsMissing(s.Elem(0)))
	assert.True(t, IsMissing(s.Elem(1)))

	f := series.New([]float64{1, math.NaN()}, series.Float, "f")
	assert.False(t, IsMissing(f.Elem(0)))
	assert.True(t, IsMissing(f.Elem(1)))

	assert.True(t, IsMissing(nil))
}

func TestHasColumn(t *testing.T) {
	df := dataframe.New(series.New([]int{1}, series.Int, "id"))
	assert.True(t, HasColumn(df, "id"))
	assert.False(t, HasColumn(df, "price"))
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]int{1, 2}, 3))
}

func TestSaveToExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.xlsx")
	train := dataframe.New(
		series.New([]float64{1.5, math.NaN()}, series.Float, "price"),
		series.New([]string{"Private room", "Unknown"}, series.String, "room_type"),
	)
	test := dataframe.New(series.New([]int{1, 0}, series.Int, "host_is_superhost"))

	require.NoError(t, SaveToExcel(path, Sheet{Name: "train", DF: train}, Sheet{Name: "test", DF: test}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"train", "test"}, f.GetSheetList())

	rows, err := f.GetRows("train")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"price", "room_type"},
		{"1.5", "Private room"},
		{"", "Unknown"},
	}, rows)

	rows, err = f.GetRows("test")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"host_is_superhost"}, {"1"}, {"0"}}, rows)

	assert.Error(t, SaveToExcel(path))
}
