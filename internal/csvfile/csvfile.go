// Package csvfile reads contact lists for group imports.
package csvfile

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// Delimiters considered when sniffing, in order of preference on a tie.
const (
	Comma = ','
	Tab   = '\t'
)

// ErrEmptyFile is returned for input with no header row.
var ErrEmptyFile = domainerrors.Validation("csv file is empty")

// File is a parsed contact list. Records never contain the header row.
type File struct {
	Header    []string
	Records   [][]string
	Delimiter rune
	// Hash is the hex SHA-256 of the decoded content and identifies repeat uploads.
	Hash string
}

// Rows returns the header followed by every record.
func (f *File) Rows() [][]string {
	rows := make([][]string, 0, len(f.Records)+1)
	rows = append(rows, f.Header)
	return append(rows, f.Records...)
}

// ReadFile reads and parses the file at path.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domainerrors.NotFoundf("csv file not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer fh.Close()
	return Read(fh)
}

// Read parses a CSV or TSV document. A UTF-8 or UTF-16 byte order mark is
// honored and removed, and invalid UTF-8 is replaced with U+FFFD. The
// delimiter is sniffed from the first line. Rows shorter than the header are
// padded with empty fields.
func Read(r io.Reader) (*File, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	firstLine, _, _ := bytes.Cut(data, []byte("\n"))
	delim := SniffDelimiter(string(firstLine))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, "read csv header")
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, "read csv record")
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, domainerrors.Validationf("line %d has %d fields, header has %d", line, len(record), len(header))
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		records = append(records, record)
	}

	sum := sha256.Sum256(data)
	return &File{
		Header:    header,
		Records:   records,
		Delimiter: delim,
		Hash:      hex.EncodeToString(sum[:]),
	}, nil
}

// SniffDelimiter picks comma or tab for a header line by counting unquoted
// occurrences. Commas win ties; a line with neither is treated as tab separated.
func SniffDelimiter(line string) rune {
	var commas, tabs int
	quoted := false
	for _, r := range line {
		switch r {
		case '"':
			quoted = !quoted
		case Comma:
			if !quoted {
				commas++
			}
		case Tab:
			if !quoted {
				tabs++
			}
		}
	}
	switch {
	case commas == 0 && tabs == 0:
		return Tab
	case commas >= tabs:
		return Comma
	default:
		return Tab
	}
}
