package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"
)

// DataError marks a problem with an input dataset. Data errors surface before
// any simulation starts; the loop never sees a malformed series.
type DataError struct {
	Path string
	Msg  string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data %s: %s", e.Path, e.Msg)
}

// LoadOptions filters a dataset while loading.
type LoadOptions struct {
	Start time.Time // zero = unbounded
	End   time.Time // zero = unbounded
}

// LoadCSV reads an OHLCV series from a CSV file. Headers are matched
// case-insensitively; timestamp, open, high, low and close are required,
// volume is optional. Timestamps may be RFC3339 or epoch seconds.
//
// Files ending in .xz are decompressed transparently; .zip archives are
// extracted and the first CSV member is loaded.
func LoadCSV(path, symbol string, opts LoadOptions) (*Series, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		return loadXZ(path, symbol, opts)
	case ".zip":
		return loadZip(path, symbol, opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readCSV(f, path, symbol, opts)
}

func loadXZ(path, symbol string, opts LoadOptions) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return nil, &DataError{Path: path, Msg: fmt.Sprintf("xz: %v", err)}
	}
	return readCSV(r, path, symbol, opts)
}

func loadZip(path, symbol string, opts LoadOptions) (*Series, error) {
	dir, err := os.MkdirTemp("", "quantsim-zip-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := unzip.Extract(path, dir); err != nil {
		return nil, &DataError{Path: path, Msg: fmt.Sprintf("unzip: %v", err)}
	}

	var csvPath string
	err = filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if csvPath == "" && !info.IsDir() && strings.EqualFold(filepath.Ext(p), ".csv") {
			csvPath = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if csvPath == "" {
		return nil, &DataError{Path: path, Msg: "archive contains no CSV member"}
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readCSV(f, path, symbol, opts)
}

func readCSV(r io.Reader, path, symbol string, opts LoadOptions) (*Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &DataError{Path: path, Msg: fmt.Sprintf("read header: %v", err)}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, required := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, &DataError{Path: path, Msg: fmt.Sprintf("missing required column %q", required)}
		}
	}
	volIdx, hasVol := cols["volume"]

	var bars []Bar
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataError{Path: path, Msg: fmt.Sprintf("read row: %v", err)}
		}

		ts, err := parseTimestamp(rec[cols["timestamp"]])
		if err != nil {
			return nil, &DataError{Path: path, Msg: err.Error()}
		}

		b := Bar{Time: ts}
		ok := true
		for _, fld := range []struct {
			name string
			dst  *float64
		}{
			{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[fld.name]]), 64)
			if err != nil || math.IsNaN(v) {
				ok = false
				break
			}
			*fld.dst = v
		}
		if !ok {
			continue // unparseable price row, drop it
		}
		if hasVol && volIdx < len(rec) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[volIdx]), 64); err == nil {
				b.Volume = v
			}
		}

		// Basic OHLC sanity, mirrors the validation the resampler applies:
		// high must bound the body, low must sit under it.
		if b.High < math.Max(b.Open, math.Max(b.Close, b.Low)) {
			continue
		}
		if b.Low > math.Min(b.Open, math.Min(b.Close, b.High)) {
			continue
		}

		if !opts.Start.IsZero() && ts.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && ts.After(opts.End) {
			continue
		}

		bars = append(bars, b)
	}

	if len(bars) == 0 {
		return nil, &DataError{Path: path, Msg: "no valid bars after parsing and validation"}
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	return &Series{Symbol: symbol, Bars: bars}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts.UTC(), nil
	}
	if epoch, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
