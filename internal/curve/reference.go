package curve

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MaxScans is the highest scan index read for one device.
const MaxScans = 4

// ErrNoScans is returned when a device has no scan files at all.
var ErrNoScans = errors.New("curve: no reference scan files")

// ScanPath returns the path of scan n for device in dir.
func ScanPath(dir, device string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_scan%d.txt", device, n))
}

// LoadReference reads <device>_scan1.txt .. <device>_scan4.txt from dir,
// concatenates the scans that exist in index order, and negates the current
// column into the generator convention.
func LoadReference(dir, device string) (Curve, error) {
	var out Curve
	found := 0

	for n := 1; n <= MaxScans; n++ {
		path := ScanPath(dir, device, n)
		scan, err := readScanFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Curve{}, err
		}
		out = out.Append(scan)
		found++
	}

	if found == 0 {
		return Curve{}, fmt.Errorf("%w for %q in %s", ErrNoScans, device, dir)
	}
	return out.Negated(), nil
}

func readScanFile(path string) (Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return Curve{}, err
	}
	defer f.Close()

	c, err := ParseScan(f)
	if err != nil {
		return Curve{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseScan reads one scan: a header row followed by whitespace-separated
// (voltage, current) rows. Blank lines are skipped; extra columns are ignored.
// Currents are returned as written.
func ParseScan(r io.Reader) (Curve, error) {
	var c Curve
	sc := bufio.NewScanner(r)

	line := 0
	header := true
	for sc.Scan() {
		line++
		if header {
			header = false
			continue
		}

		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return Curve{}, fmt.Errorf("line %d: expected voltage and current, got %q", line, sc.Text())
		}

		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Curve{}, fmt.Errorf("line %d: voltage: %w", line, err)
		}
		i, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Curve{}, fmt.Errorf("line %d: current: %w", line, err)
		}
		c.V = append(c.V, v)
		c.I = append(c.I, i)
	}
	if err := sc.Err(); err != nil {
		return Curve{}, fmt.Errorf("read scan: %w", err)
	}
	return c, nil
}

// WriteScan writes c in the scan file format, negating the current so that
// LoadReference returns c unchanged.
func WriteScan(w io.Writer, c Curve) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "V\tI")
	for k := range c.V {
		fmt.Fprintf(bw, "%s\t%s\n",
			strconv.FormatFloat(c.V[k], 'g', -1, 64),
			strconv.FormatFloat(-c.I[k], 'g', -1, 64))
	}
	return bw.Flush()
}
