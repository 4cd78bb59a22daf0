package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanNotes(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"quoted comma padding", []string{`"foo,,, "`}, "foo"},
		{"plain trailing commas", []string{"second note,,,"}, "second note"},
		{"empties dropped", []string{"", "  ", ",,,", `""`, "kept"}, "kept"},
		{"multiple lines joined", []string{`"a,,"`, "b"}, "a\nb"},
		{"inner comma runs removed", []string{"left, right"}, "leftright"},
		{"one quote layer only", []string{`""quoted""`}, `"quoted"`},
		{"no lines", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanNotes(tt.lines))
		})
	}
}
