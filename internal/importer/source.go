package importer

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexivanou/georef/internal/model"
)

// maxLineSize bounds a single source line. alternateNames.txt has lines far
// longer than the bufio default.
const maxLineSize = 1024 * 1024

// rowError marks a malformed source line. scanFile turns it into a
// *model.ParseError carrying the file name and the line.
type rowError struct {
	err error
}

func (e *rowError) Error() string { return e.err.Error() }
func (e *rowError) Unwrap() error { return e.err }

func malformed(format string, args ...interface{}) error {
	return &rowError{err: fmt.Errorf(format, args...)}
}

func malformedErr(err error) error {
	return &rowError{err: err}
}

// zipEntry closes the archive together with the entry read from it
type zipEntry struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipEntry) Close() error {
	err := z.ReadCloser.Close()
	if cerr := z.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// openSource opens name inside dir. A ".zip" name, or a missing ".txt" file
// with a zip archive of the same base name next to it, is read from the
// archive.
func openSource(dir, name string) (io.ReadCloser, error) {
	path := filepath.Join(dir, name)
	if strings.HasSuffix(name, ".zip") {
		return openZip(path, strings.TrimSuffix(name, ".zip")+".txt")
	}

	file, err := os.Open(path)
	if err == nil {
		return file, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	zipPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".zip"
	if _, statErr := os.Stat(zipPath); statErr != nil {
		return nil, fmt.Errorf("%s not found (checked %s and %s): %w", name, path, zipPath, err)
	}
	return openZip(zipPath, name)
}

func openZip(zipPath, want string) (io.ReadCloser, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	var target *zip.File
	for _, f := range r.File {
		if filepath.Base(f.Name) == want {
			target = f
			break
		}
		if target == nil && strings.HasSuffix(f.Name, ".txt") {
			target = f
		}
	}
	if target == nil {
		r.Close()
		return nil, fmt.Errorf("no txt file found in %s", zipPath)
	}

	rc, err := target.Open()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to open file in zip: %w", err)
	}
	return &zipEntry{ReadCloser: rc, archive: r}, nil
}

// scanFile streams the tab separated lines of a source file into fn with
// every field trimmed. Blank lines and "#" comments are skipped, and so is the
// first line when skipHeader is set.
func scanFile(dir, name string, skipHeader bool, fn func(fields []string) error) error {
	rc, err := openSource(dir, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	buf := make([]byte, 0, 64*1024)
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(buf, maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 && skipHeader {
			continue
		}
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		if err := fn(fields); err != nil {
			var re *rowError
			if errors.As(err, &re) {
				return &model.ParseError{File: name, Line: lineNo, Content: line, Err: re.err}
			}
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", name, err)
	}
	return nil
}

func requireFields(fields []string, n int) error {
	if len(fields) < n {
		return malformed("expected at least %d fields, got %d", n, len(fields))
	}
	return nil
}
