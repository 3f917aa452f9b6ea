package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fixture is a recognized document with the fields it should yield.
type Fixture struct {
	Name     string            `json:"name"`
	Lines    []string          `json:"lines"`
	Expected map[string]string `json:"expected"`
}

// DecisionFixture is a typical board appointment decision.
func DecisionFixture() Fixture {
	return Fixture{
		Name: "decision",
		Lines: []string{
			"CÔNG TY CỔ PHẦN XÂY DỰNG BẢO TÀNG HỒ CHÍ MINH",
			"Số 14.6./QĐ-HĐQT",
			"Hà Nội, ngày 5 tháng 3 năm 2024",
			"QUYẾT ĐỊNH",
			"Điều 1. Bổ nhiệm Ông Nguyễn Văn An, sinh năm 1980",
			"giữ chức vụ Giám đốc nhiệm kỳ 2024-2029",
			"CHỦ TỊCH HỘI ĐỒNG QUẢN TRỊ",
			"Phạm Minh Tuấn",
		},
		Expected: map[string]string{
			"decision_number": "14.6./QĐ-HĐQT",
			"decision_date":   "2024-03-05",
			"appointee_name":  "Nguyễn Văn An",
			"position":        "Giám đốc",
			"term":            "2024-2029",
			"company":         "CÔNG TY CỔ PHẦN XÂY DỰNG BẢO TÀNG HỒ CHÍ MINH",
			"signer_name":     "Phạm Minh Tuấn",
		},
	}
}

// SaveFixture writes f as JSON under dir and returns the path.
func SaveFixture(t *testing.T, dir string, f Fixture) string {
	t.Helper()
	data, err := json.MarshalIndent(f, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(dir, f.Name+".json")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// LoadFixture reads a fixture written by SaveFixture.
func LoadFixture(t *testing.T, path string) Fixture {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // G304: test fixture path
	require.NoError(t, err)
	var f Fixture
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}
