package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, s Strategy, text string) (string, string, bool) {
	t.Helper()
	return s.Apply(NewDocument(text))
}

func TestDecisionNumberRules(t *testing.T) {
	cases := []struct {
		text, want, rule string
	}{
		{"Số 14.6./QĐ-HĐQT", "14.6./QĐ-HĐQT", "so-prefixed"},
		{"Quyết định 14.6/QĐ-HĐQT ngày", "14.6/QĐ-HĐQT", "dotted"},
		{"Số: 123/QĐ-HĐQT", "123/QĐ-HĐQT", "qd-code"},
		{"Quyết định 45 / QĐ-TCT", "45/QĐ-TCT", "qd-code"},
		{"Số 07/HĐQT", "07/HĐQT", "bare"},
	}
	for _, c := range cases {
		v, rule, ok := apply(t, DecisionNumberRules(), c.text)
		require.True(t, ok, c.text)
		assert.Equal(t, c.want, v, c.text)
		assert.Equal(t, c.rule, rule, c.text)
	}

	_, _, ok := apply(t, DecisionNumberRules(), "ngày 05/03/2024")
	assert.False(t, ok)
}

func TestDateRules(t *testing.T) {
	cases := []struct{ text, want string }{
		{"ngày 5 tháng 3 năm 2024", "2024-03-05"},
		{"NGÀY 15 THÁNG 12 NĂM 2023", "2023-12-15"},
		{"Hà Nội, 05/03/2024", "2024-03-05"},
		{"ký 5-3-2024", "2024-03-05"},
		{"05 03 2024", "2024-03-05"},
		{"45/13/2024 và 01/02/2024", "2024-02-01"},
		{"ngày 31/02/2024, ký ngày 29/02/2024", "2024-02-29"},
	}
	for _, c := range cases {
		v, _, ok := apply(t, DateRules(), c.text)
		require.True(t, ok, c.text)
		assert.Equal(t, c.want, v, c.text)
	}

	for _, text := range []string{"năm 2024", "ngày 31/02/2024", "ngày 29 tháng 2 năm 2023", "31-04-2024"} {
		_, _, ok := apply(t, DateRules(), text)
		assert.False(t, ok, text)
	}
}

func TestDateRulePriority(t *testing.T) {
	// The long form wins even when a numeric date comes first.
	v, rule, ok := apply(t, DateRules(), "01/01/2020\nngày 2 tháng 2 năm 2022")
	require.True(t, ok)
	assert.Equal(t, "2022-02-02", v)
	assert.Equal(t, "long-form", rule)
}

func TestNormalizeDate(t *testing.T) {
	v, ok := NormalizeDate("2024-03-05")
	require.True(t, ok)
	assert.Equal(t, "2024-03-05", v)

	v, ok = NormalizeDate("ngày 5 tháng 3 năm 2024")
	require.True(t, ok)
	assert.Equal(t, "2024-03-05", v)

	_, ok = NormalizeDate("2024-13-05")
	assert.False(t, ok)
	_, ok = NormalizeDate("2024-02-31")
	assert.False(t, ok)
	_, ok = NormalizeDate("soon")
	assert.False(t, ok)
}

func TestTermRules(t *testing.T) {
	cases := []struct{ text, want string }{
		{"nhiệm kỳ 2024-2029", "2024-2029"},
		{"nhiệm kỳ 2024 – 2029", "2024–2029"},
		{"1998 - 2003", "1998-2003"},
	}
	for _, c := range cases {
		v, _, ok := apply(t, TermRules(), c.text)
		require.True(t, ok, c.text)
		assert.Equal(t, c.want, v)
	}
	_, _, ok := apply(t, TermRules(), "1850-1855 và 20245-2030")
	assert.False(t, ok)
}

func TestCompanyRegexRules(t *testing.T) {
	cases := []struct{ text, want, rule string }{
		{"Công ty Cổ phần Xây dựng Bảo tàng Hồ Chí Minh", "Công ty Cổ phần Xây dựng Bảo tàng Hồ Chí Minh", "known-name"},
		{"CÔNG TY TNHH MINH PHÁT Địa chỉ: Hà Nội", "CÔNG TY TNHH MINH PHÁT", "upper-case-name"},
		{"Trụ sở Công ty TNHH Minh Phát\nSố 1", "Công ty TNHH Minh Phát", "mixed-case-name"},
	}
	for _, c := range cases {
		v, rule, ok := apply(t, CompanyRules(CompanyRegex), c.text)
		require.True(t, ok, c.text)
		assert.Equal(t, c.want, v, c.text)
		assert.Equal(t, c.rule, rule, c.text)
	}
	_, _, ok := apply(t, CompanyRules(CompanyRegex), "Hội đồng quản trị")
	assert.False(t, ok)
}

func TestCompanyLinesRules(t *testing.T) {
	lines := make([]string, 0, 12)
	for range 11 {
		lines = append(lines, "Điều khoản")
	}
	lines = append(lines, "Cong ty Hoa Sen #1")
	v, rule, ok := CompanyRules(CompanyLines).Apply(NewDocumentFromLines(lines))
	require.True(t, ok)
	assert.Equal(t, "Cong ty Hoa Sen 1", v)
	assert.Equal(t, "any-line", rule)

	_, _, ok = CompanyRules(CompanyLines).Apply(NewDocument("Hoạt động của các công tyx"))
	assert.False(t, ok)
}

func TestPositionRules(t *testing.T) {
	cases := []struct{ text, want string }{
		{"giữ chức vụ PHÓ TỔNG GIÁM ĐỐC", "Phó Tổng Giám đốc"},
		{"Tổng giám đốc và Giám đốc", "Tổng Giám đốc"},
		{"Kế toán trưởng", "Kế toán trưởng"},
		{"Thành viên HĐQT", "Thành viên HĐQT"},
		{"là Thành viên Hội đồng quản trị", "Thành viên Hội đồng quản trị"},
		{"Phó Chủ tịch", "Phó Chủ tịch"},
	}
	for _, c := range cases {
		v, _, ok := apply(t, PositionRules(), c.text)
		require.True(t, ok, c.text)
		assert.Equal(t, c.want, v, c.text)
	}

	_, _, ok := apply(t, PositionRules(), "Quyết định về việc khen thưởng")
	assert.False(t, ok)
}

func TestNameRules(t *testing.T) {
	cases := []struct {
		strategy NameStrategy
		text     string
		want     string
		rule     string
	}{
		{NameContextual, "Ông Nguyễn Văn An, sinh năm 1980", "Nguyễn Văn An", "honorific"},
		{NameContextual, "Điều 1. Bổ nhiệm Bà Trần Thị Mai giữ chức vụ", "Trần Thị Mai", "appointment-context"},
		{NameHeuristic, "Điều 1. Bổ nhiệm Bà Trần Thị Mai (sinh 1985)", "Trần Thị Mai", "honorific"},
		{NameHeuristic, "Nay bo nhiem Tran Thi Mai lam ke toan", "Tran Thi Mai", "appointment-verb"},
		{NameHeuristic, "Họ và tên: Lê Hoàng Nam (Nam)", "Lê Hoàng Nam", "name-label"},
		{NameHeuristic, "Ho ten - Vu Duc Long, sinh ngay 1/1/1970", "Vu Duc Long", "name-label"},
	}
	for _, c := range cases {
		v, rule, ok := apply(t, NameRules(c.strategy), c.text)
		require.True(t, ok, c.text)
		assert.Equal(t, c.want, v, c.text)
		assert.Equal(t, c.rule, rule, c.text)
	}
}

func TestNameRulesRejectSingleWord(t *testing.T) {
	_, _, ok := apply(t, NameRules(NameHeuristic), "Ông An, sinh năm 1980\nHọ tên: Lan")
	assert.False(t, ok)
}

func TestSignerRules(t *testing.T) {
	v, rule, ok := apply(t, SignerRules(), "CHỦ TỊCH HỘI ĐỒNG QUẢN TRỊ\n  Đỗ Việt Thi\n")
	require.True(t, ok)
	assert.Equal(t, "Đỗ Việt Thi", v)
	assert.Equal(t, "board-chair-block", rule)

	_, _, ok = apply(t, SignerRules(), "Chủ tịch Hội đồng quản trị\nCông ty")
	assert.False(t, ok)
}

func TestSealRules(t *testing.T) {
	_, rule, ok := apply(t, SealRules(), "Đã đóng DẤU")
	require.True(t, ok)
	assert.Equal(t, "dấu", rule)

	_, rule, ok = apply(t, SealRules(), "có con dấu đỏ")
	require.True(t, ok)
	assert.Equal(t, "con dấu", rule)

	_, _, ok = apply(t, SealRules(), "Official STAMP")
	assert.True(t, ok)

	_, _, ok = apply(t, SealRules(), "Quyết định")
	assert.False(t, ok)
}
