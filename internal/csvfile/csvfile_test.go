package csvfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"first,last,phone", Comma},
		{"first\tlast\tphone", Tab},
		{`"last, first"` + "\tphone", Tab},
		{"a,b\tc", Comma},
		{"a,b\tc\td", Tab},
		{"phone", Tab},
		{"", Tab},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, SniffDelimiter(tt.line))
		})
	}
}

func TestRead(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		delimiter rune
		header    []string
		records   [][]string
	}{
		{
			name:      "comma separated",
			input:     "first,last,phone\nAda,Lovelace,555-0100\n",
			delimiter: Comma,
			header:    []string{"first", "last", "phone"},
			records:   [][]string{{"Ada", "Lovelace", "555-0100"}},
		},
		{
			name:      "tab separated with crlf",
			input:     "first\tlast\tphone\r\nAda\tLovelace\t555-0100\r\n",
			delimiter: Tab,
			header:    []string{"first", "last", "phone"},
			records:   [][]string{{"Ada", "Lovelace", "555-0100"}},
		},
		{
			name:      "utf-8 bom stripped",
			input:     "\ufefffirst,last,phone\nAda,Lovelace,555-0100\n",
			delimiter: Comma,
			header:    []string{"first", "last", "phone"},
			records:   [][]string{{"Ada", "Lovelace", "555-0100"}},
		},
		{
			name:      "short rows padded",
			input:     "first,last,phone,zip\nAda,Lovelace,555-0100\n",
			delimiter: Comma,
			header:    []string{"first", "last", "phone", "zip"},
			records:   [][]string{{"Ada", "Lovelace", "555-0100", ""}},
		},
		{
			name:      "quoted delimiters",
			input:     "name,phone\n\"Lovelace, Ada\",555-0100\n",
			delimiter: Comma,
			header:    []string{"name", "phone"},
			records:   [][]string{{"Lovelace, Ada", "555-0100"}},
		},
		{
			name:      "header only",
			input:     "first,last,phone\n",
			delimiter: Comma,
			header:    []string{"first", "last", "phone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Read(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.delimiter, f.Delimiter)
			assert.Equal(t, tt.header, f.Header)
			assert.Equal(t, tt.records, f.Records)
			assert.Len(t, f.Hash, 64)
		})
	}
}

func TestRead_UTF16(t *testing.T) {
	// "a,b\n1,2\n" as UTF-16LE with a byte order mark
	input := []byte{0xFF, 0xFE}
	for _, r := range "a,b\n1,2\n" {
		input = append(input, byte(r), 0)
	}

	f, err := Read(strings.NewReader(string(input)))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.Header)
	assert.Equal(t, [][]string{{"1", "2"}}, f.Records)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", " \n\n"},
		{"row wider than header", "first,last\nAda,Lovelace,555-0100\n"},
		{"bare quote", "first,last\n\"Ada,Lovelace\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
}

func TestRead_HashIgnoresBOM(t *testing.T) {
	plain, err := Read(strings.NewReader("first,last,phone\n"))
	require.NoError(t, err)
	withBOM, err := Read(strings.NewReader("\ufefffirst,last,phone\n"))
	require.NoError(t, err)
	other, err := Read(strings.NewReader("first,last,phone\nAda,L,1\n"))
	require.NoError(t, err)

	assert.Equal(t, plain.Hash, withBOM.Hash)
	assert.NotEqual(t, plain.Hash, other.Hash)
}

func TestFile_Rows(t *testing.T) {
	f := &File{Header: []string{"a"}, Records: [][]string{{"1"}, {"2"}}}
	assert.Equal(t, [][]string{{"a"}, {"1"}, {"2"}}, f.Rows())
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.tsv")
	require.NoError(t, os.WriteFile(path, []byte("first\tlast\tphone\nAda\tLovelace\t555-0100\n"), 0o644))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Tab, f.Delimiter)

	_, err = ReadFile(filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
