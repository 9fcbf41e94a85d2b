package report

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
)

// archive is a zip file of CSV sheets written in order.
type archive struct {
	path string
	f    *os.File
	zw   *zip.Writer
}

func newArchive(dir, name string) (*archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &archive{path: path, f: f, zw: zip.NewWriter(f)}, nil
}

// sheet writes one CSV member.
func (a *archive) sheet(name string, header []string, rows [][]string) error {
	w, err := a.zw.Create(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// close finishes the archive. On failure the partial file is removed.
func (a *archive) close(failed error) (string, error) {
	zerr := a.zw.Close()
	ferr := a.f.Close()
	err := failed
	if err == nil {
		err = zerr
	}
	if err == nil {
		err = ferr
	}
	if err != nil {
		_ = os.Remove(a.path)
		return "", err
	}
	return a.path, nil
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func fmtOptFloat(x *float64) string {
	if x == nil {
		return ""
	}
	return fmtFloat(*x)
}

// fmtMoney renders x rounded to places decimals.
func fmtMoney(x float64, places int32) string {
	return decimal.NewFromFloat(x).Round(places).StringFixed(places)
}
