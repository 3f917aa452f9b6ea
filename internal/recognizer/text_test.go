package recognizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanLine(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"  Số   14.6./QĐ-HĐQT  ", "Số 14.6./QĐ-HĐQT"},
		{"Điều 1.\tBổ nhiệm\nÔng", "Điều 1. Bổ nhiệm Ông"},
		{"• Giám đốc · điều hành", "Giám đốc điều hành"},
		{"a\u0000b\u007fc\u0085d", "abcd"},
		{"x\u00A0y", "xy"},
		{"x\u2009y", "x y"},
		{"zero\u200Bwidth\uFEFF", "zerowidth"},
		{"Nguye\u0302\u0303n Va\u0306n", "Nguy\u1EC5n V\u0103n"},
		{"\t\n ", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CleanLine(c.in), "input %q", c.in)
	}
}
