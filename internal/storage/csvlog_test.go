package storage

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/naka-gawa/github-traffic/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func newTestLog(t *testing.T, content *string) *TrafficLog {
	path := filepath.Join(t.TempDir(), "traffic_data.csv")
	if content != nil {
		require.NoError(t, os.WriteFile(path, []byte(*content), 0o644))
	}
	return NewTrafficLog(path, log.New(io.Discard, "", 0))
}

func readFile(t *testing.T, path string) string {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestTrafficLog_AppendWritesHeaderOnce(t *testing.T) {
	empty := ""
	withHeaderOnly := "date,views,unique_visitors,clones,unique_cloners\n"

	testCases := []struct {
		name     string
		initial  *string
		expected string
	}{
		{
			name:     "nonexistent file",
			initial:  nil,
			expected: "date,views,unique_visitors,clones,unique_cloners\n2024-01-01,10,3,1,1\n2024-01-02,5,2,,\n",
		},
		{
			name:     "empty file",
			initial:  &empty,
			expected: "date,views,unique_visitors,clones,unique_cloners\n2024-01-01,10,3,1,1\n2024-01-02,5,2,,\n",
		},
		{
			name:     "header only",
			initial:  &withHeaderOnly,
			expected: "date,views,unique_visitors,clones,unique_cloners\n2024-01-01,10,3,1,1\n2024-01-02,5,2,,\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := newTestLog(t, tc.initial)
			err := l.Append([]*domain.DailyRecord{
				{Date: "2024-01-01", Views: intp(10), UniqueVisitors: intp(3), Clones: intp(1), UniqueCloners: intp(1)},
				{Date: "2024-01-02", Views: intp(5), UniqueVisitors: intp(2)},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, readFile(t, l.Path()))
		})
	}
}

func TestTrafficLog_AppendKeepsExistingRows(t *testing.T) {
	initial := "date,views,unique_visitors,clones,unique_cloners\n2024-01-01,10,3,1,1\n"
	l := newTestLog(t, &initial)

	err := l.Append([]*domain.DailyRecord{{Date: "2024-01-03", Clones: intp(2), UniqueCloners: intp(1)}})
	require.NoError(t, err)
	assert.Equal(t, initial+"2024-01-03,,,2,1\n", readFile(t, l.Path()))
}

func TestTrafficLog_AppendCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "traffic", "traffic_data.csv")
	l := NewTrafficLog(path, log.New(io.Discard, "", 0))

	require.NoError(t, l.Append([]*domain.DailyRecord{{Date: "2024-01-01", Views: intp(0), UniqueVisitors: intp(0)}}))
	assert.Equal(t, "date,views,unique_visitors,clones,unique_cloners\n2024-01-01,0,0,,\n", readFile(t, path))
}

func TestTrafficLog_ExistingDates(t *testing.T) {
	empty := ""
	populated := "date,views,unique_visitors,clones,unique_cloners\n2024-01-01,10,3,1,1\n2024-01-02,5,2,,\n"

	testCases := []struct {
		name     string
		initial  *string
		expected map[string]struct{}
	}{
		{name: "nonexistent file", initial: nil, expected: map[string]struct{}{}},
		{name: "empty file", initial: &empty, expected: map[string]struct{}{}},
		{
			name:     "populated file",
			initial:  &populated,
			expected: map[string]struct{}{"2024-01-01": {}, "2024-01-02": {}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := newTestLog(t, tc.initial)
			dates, err := l.ExistingDates()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, dates)
		})
	}
}

func TestTrafficLog_ReadAll(t *testing.T) {
	content := "date,views,unique_visitors,clones,unique_cloners\n2024-01-01,10,3,1,1\n2024-01-02,5,2,,\n2024-01-03,,,4,2\n"
	l := newTestLog(t, &content)

	records, err := l.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []*domain.DailyRecord{
		{Date: "2024-01-01", Views: intp(10), UniqueVisitors: intp(3), Clones: intp(1), UniqueCloners: intp(1)},
		{Date: "2024-01-02", Views: intp(5), UniqueVisitors: intp(2)},
		{Date: "2024-01-03", Clones: intp(4), UniqueCloners: intp(2)},
	}, records)
}

func TestTrafficLog_ReadAllRejectsBadNumbers(t *testing.T) {
	content := "date,views,unique_visitors,clones,unique_cloners\n2024-01-01,ten,3,,\n"
	l := newTestLog(t, &content)

	records, err := l.ReadAll()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Nil(t, records)
}

func TestTrafficLog_AppendAfterMissingTrailingNewline(t *testing.T) {
	testCases := []struct {
		name     string
		initial  string
		expected string
	}{
		{
			name:     "last data row unterminated",
			initial:  "date,views,unique_visitors,clones,unique_cloners\n2024-01-01,10,3,1,1",
			expected: "date,views,unique_visitors,clones,unique_cloners\n2024-01-01,10,3,1,1\n2024-01-02,5,2,,\n",
		},
		{
			name:     "header unterminated",
			initial:  "date,views,unique_visitors,clones,unique_cloners",
			expected: "date,views,unique_visitors,clones,unique_cloners\n2024-01-02,5,2,,\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			initial := tc.initial
			l := newTestLog(t, &initial)

			require.NoError(t, l.Append([]*domain.DailyRecord{{Date: "2024-01-02", Views: intp(5), UniqueVisitors: intp(2)}}))
			assert.Equal(t, tc.expected, readFile(t, l.Path()))

			dates, err := l.ExistingDates()
			require.NoError(t, err)
			assert.Contains(t, dates, "2024-01-02")
		})
	}
}
