package importer

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexivanou/georef/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func collect(t *testing.T, dir, name string, skipHeader bool) [][]string {
	var rows [][]string
	err := scanFile(dir, name, skipHeader, func(fields []string) error {
		rows = append(rows, fields)
		return nil
	})
	require.NoError(t, err)
	return rows
}

func TestScanFile(t *testing.T) {
	dir := t.TempDir()
	content := "header\tline\n# comment\n a \t b\r\n\n\nc\t\td\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte(content), 0o644))

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "", "d"}}, collect(t, dir, "data.txt", true))
	assert.Equal(t, [][]string{{"header", "line"}, {"a", "b"}, {"c", "", "d"}}, collect(t, dir, "data.txt", false))
}

func TestScanFile_ParseError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("1\tok\nx\tbad\n"), 0o644))

	err := scanFile(dir, "data.txt", false, func(fields []string) error {
		_, err := parseID(fields[0])
		return err
	})
	var pe *model.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "data.txt", pe.File)
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, "x\tbad", pe.Content)
}

func TestScanFile_OtherErrorsPassThrough(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("1\n"), 0o644))

	err := scanFile(dir, "data.txt", false, func([]string) error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
	var pe *model.ParseError
	assert.False(t, errors.As(err, &pe))
}

func TestOpenSource_Zip(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "cities500.zip"), map[string]string{
		"readme.txt":    "ignored\n",
		"cities500.txt": "1\tAberdeen\n",
	})

	t.Run("sibling archive of a missing txt", func(t *testing.T) {
		assert.Equal(t, [][]string{{"1", "Aberdeen"}}, collect(t, dir, "cities500.txt", false))
	})

	t.Run("archive named directly", func(t *testing.T) {
		assert.Equal(t, [][]string{{"1", "Aberdeen"}}, collect(t, dir, "cities500.zip", false))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := openSource(dir, "cities1000.txt")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParsePostcode(t *testing.T) {
	p, err := parsePostcode(postcode("GB", "AB10 1AA", "Aberdeen", "57.14", "-2.11", "6"))
	require.NoError(t, err)
	assert.Equal(t, "AB10 1AA", p.PostalCode)
	assert.Equal(t, 6, *p.Accuracy)

	p, err = parsePostcode(postcode("FR", "75001", "Paris", "48.86", "2.34", "")[:11])
	require.NoError(t, err)
	assert.Nil(t, p.Accuracy)

	_, err = parsePostcode([]string{"GB", "AB10"})
	assert.Error(t, err)

	_, err = parsePostcode(postcode("GB", "AB10 1AA", "Aberdeen", "north", "-2.11", ""))
	assert.Error(t, err)
}
