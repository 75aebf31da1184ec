package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

var naValues = []string{"", "NA", "NaN", "N/A"}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "train.csv", []byte(
		"id,price,amenities,notes\n"+
			`1,"$1,200.00","{""Wifi"",Kitchen}",`+"\n"+
			"2,$85.00,{},N/A\n"+
			"3,NA,{TV}\n"))

	df, err := Load(path, Options{NAValues: naValues})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "price", "amenities", "notes"}, df.Names())
	assert.Equal(t, 3, df.Nrow())
	assert.Equal(t, "$1,200.00", df.Col("price").Elem(0).String())
	assert.Equal(t, `{"Wifi",Kitchen}`, df.Col("amenities").Elem(0).String())
	assert.True(t, df.Col("price").Elem(2).IsNA())
	// 缺少的字段补为缺失
	for i := 0; i < 3; i++ {
		assert.True(t, df.Col("notes").Elem(i).IsNA(), "row %d", i)
	}
	// 不做类型推断
	assert.Equal(t, "1", df.Col("id").Elem(0).String())
}

func TestLoad_HeaderOnly(t *testing.T) {
	path := writeFile(t, t.TempDir(), "test.csv", []byte("id,price\n"))

	df, err := Load(path, Options{NAValues: naValues})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "price"}, df.Names())
	assert.Equal(t, 0, df.Nrow())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.csv"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	empty := writeFile(t, dir, "empty.csv", nil)
	_, err = Load(empty, Options{})
	assert.ErrorIs(t, err, ErrNoHeader)

	ok := writeFile(t, dir, "ok.csv", []byte("a\n1\n"))
	_, err = Load(ok, Options{Encoding: "ebcdic"})
	assert.Error(t, err)
}

func TestReadCSV_Encodings(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String("城市,price\n北京,$10\n")
	require.NoError(t, err)
	latin1, err := charmap.ISO8859_1.NewEncoder().String("city,price\nZürich,$10\n")
	require.NoError(t, err)

	cases := []struct {
		name     string
		encoding string
		data     string
		col      string
		want     string
	}{
		{"utf8 带 BOM", "", "\ufeffcity,price\nParis,$10\n", "city", "Paris"},
		{"gbk", "gbk", gbk, "城市", "北京"},
		{"latin1", "latin1", latin1, "city", "Zürich"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			df, err := ReadCSV(strings.NewReader(c.data), Options{Encoding: c.encoding, NAValues: naValues})
			require.NoError(t, err)
			require.Contains(t, df.Names(), c.col)
			assert.Equal(t, c.want, df.Col(c.col).Elem(0).String())
		})
	}
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("listings")
	require.NoError(t, err)
	rows := [][]string{
		{"Airbnb export"},
		{"id", "price", "host_since"},
		{"1", "$100", "43000"},
		{"2", "", "2019-01-02"},
	}
	for _, values := range rows {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().Value = v
		}
	}
	require.NoError(t, f.Save(path))

	df, err := Load(path, Options{SheetName: "listings", HeaderRow: 1, NAValues: naValues})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "price", "host_since"}, df.Names())
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, "43000", df.Col("host_since").Elem(0).String())
	assert.True(t, df.Col("price").Elem(1).IsNA())

	_, err = Load(path, Options{SheetName: "nope"})
	assert.Error(t, err)
}

func TestStat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.csv", []byte("a\n1\n"))

	first, err := Stat(path)
	require.NoError(t, err)
	assert.Equal(t, "a.csv", first.Name)
	assert.Equal(t, int64(4), first.Size)
	assert.Len(t, first.Checksum, 32)

	same, err := Stat(path)
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, same.Checksum)

	require.NoError(t, os.WriteFile(path, []byte("a\n2\n"), 0644))
	changed, err := Stat(path)
	require.NoError(t, err)
	assert.NotEqual(t, first.Checksum, changed.Checksum)

	_, err = Stat(dir)
	assert.Error(t, err)
}

func TestIsXLSX(t *testing.T) {
	assert.True(t, IsXLSX("data/train.xlsx"))
	assert.True(t, IsXLSX("TRAIN.XLSX"))
	assert.False(t, IsXLSX("train.csv"))
	assert.False(t, IsXLSX("train.xlsx.bak"))
}
