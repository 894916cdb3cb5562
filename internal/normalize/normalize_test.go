package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "First_Name", "first_name"},
		{"keeps spaces", "Phone ", "phone "},
		{"drops byte order mark", "\uFEFFfirst", "first"},
		{"drops null bytes", "zi\x00p", "zip"},
		{"composes accents", "Pre\u0301nom", "pr\u00e9nom"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.in))
		})
	}
}

func TestKeys(t *testing.T) {
	in := []string{"FIRST", "Last"}
	out := Keys(in)

	assert.Equal(t, []string{"first", "last"}, out)
	assert.Equal(t, []string{"FIRST", "Last"}, in)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 255))
	assert.Equal(t, "é", Truncate("éa", 1))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Len(t, Truncate(strings.Repeat("x", 300), 255), 255)
}
