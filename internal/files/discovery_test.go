package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewDiscovery(t *testing.T) {
	basePath := "/test/base"
	discovery := NewDiscovery(basePath)

	assert.NotNil(t, discovery)
	assert.Equal(t, basePath, discovery.basePath)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		ext      string
		expected string
	}{
		{"", "turnstile_210102.txt"},
		{".txt", "turnstile_210102.txt"},
		{"csv", "turnstile_210102.csv"},
		{".xlsx", "turnstile_210102.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.expected, FileName(date(2021, 1, 2), tt.ext))
		})
	}
}

func TestParseFileDate(t *testing.T) {
	tests := []struct {
		name string
		want time.Time
		ok   bool
	}{
		{"turnstile_210102.txt", date(2021, 1, 2), true},
		{"/data/turnstile_191228.csv", date(2019, 12, 28), true},
		{"turnstile_notadate.txt", time.Time{}, false},
		{"readme.txt", time.Time{}, false},
		{"turnstile_211399.txt", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFileDate(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWeeklyFileNames(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		expected   []string
	}{
		{
			name:     "start on publish day",
			start:    date(2021, 1, 2),
			end:      date(2021, 1, 16),
			expected: []string{"turnstile_210102.txt", "turnstile_210109.txt"},
		},
		{
			name:     "start mid week advances to saturday",
			start:    date(2020, 12, 30),
			end:      date(2021, 1, 10),
			expected: []string{"turnstile_210102.txt", "turnstile_210109.txt"},
		},
		{
			name:     "end is exclusive",
			start:    date(2021, 1, 2),
			end:      date(2021, 1, 9),
			expected: []string{"turnstile_210102.txt"},
		},
		{
			name:     "sunday start skips six days",
			start:    date(2021, 1, 3),
			end:      date(2021, 1, 9),
			expected: nil,
		},
		{
			name:     "empty range",
			start:    date(2021, 1, 9),
			end:      date(2021, 1, 2),
			expected: nil,
		},
		{
			name:  "across a year boundary",
			start: date(2019, 12, 21),
			end:   date(2020, 1, 5),
			expected: []string{
				"turnstile_191221.txt",
				"turnstile_191228.txt",
				"turnstile_200104.txt",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WeeklyFileNames(tt.start, tt.end, ".txt"))
		})
	}
}

func TestFilesInRangeResolvesAgainstBase(t *testing.T) {
	discovery := NewDiscovery("/srv/turnstile")

	paths := discovery.FilesInRange("data", date(2021, 1, 2), date(2021, 1, 3), "")
	assert.Equal(t, []string{filepath.Join("/srv/turnstile", "data", "turnstile_210102.txt")}, paths)

	abs := filepath.Join(t.TempDir(), "abs")
	paths = discovery.FilesInRange(abs, date(2021, 1, 2), date(2021, 1, 3), "")
	assert.Equal(t, []string{filepath.Join(abs, "turnstile_210102.txt")}, paths)
}

func TestFilesInRangeMergesDatedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"turnstile_210102.txt",
		"turnstile_210105.txt",
		"turnstile_210106.csv",
		"turnstile_210116.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	paths := NewDiscovery("").FilesInRange(dir, date(2021, 1, 1), date(2021, 1, 16), ".txt")
	assert.Equal(t, []string{
		filepath.Join(dir, "turnstile_210102.txt"),
		filepath.Join(dir, "turnstile_210105.txt"),
		filepath.Join(dir, "turnstile_210109.txt"),
	}, paths, "off-schedule files join the weekly names; the missing week stays listed")
}

func TestFindTurnstileFiles(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"turnstile_210109.txt",
		"turnstile_201226.csv",
		"turnstile_210102.xlsx",
		"turnstile_210102.txt",
		"turnstile_210116.pdf",
		"notes.txt",
		"turnstile_bad.txt",
	}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "turnstile_210123.txt"), 0o755))

	found, err := NewDiscovery("").FindTurnstileFiles(dir)
	require.NoError(t, err)

	var got []string
	for _, f := range found {
		got = append(got, f.Name)
		assert.Equal(t, int64(1), f.Size)
		assert.Equal(t, filepath.Join(dir, f.Name), f.Path)
	}
	assert.Equal(t, []string{
		"turnstile_201226.csv",
		"turnstile_210102.txt",
		"turnstile_210102.xlsx",
		"turnstile_210109.txt",
	}, got)
	assert.Equal(t, date(2020, 12, 26), found[0].Date)
}

func TestFindTurnstileFilesMissingDirectory(t *testing.T) {
	_, err := NewDiscovery("").FindTurnstileFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFilterFilesByDateRange(t *testing.T) {
	all := []FileInfo{
		{Name: "a", Date: date(2020, 12, 26)},
		{Name: "b", Date: date(2021, 1, 2)},
		{Name: "c", Date: date(2021, 1, 9)},
	}

	tests := []struct {
		name       string
		start, end time.Time
		expected   []string
	}{
		{"half open", date(2021, 1, 2), date(2021, 1, 9), []string{"b"}},
		{"everything", date(2020, 1, 1), date(2022, 1, 1), []string{"a", "b", "c"}},
		{"nothing", date(2022, 1, 1), date(2023, 1, 1), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, f := range FilterFilesByDateRange(all, tt.start, tt.end) {
				got = append(got, f.Name)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, []string{"/x/a", "/x/b"}, Paths([]FileInfo{{Path: "/x/a"}, {Path: "/x/b"}}))
	assert.Empty(t, Paths(nil))
}

func BenchmarkWeeklyFileNames(b *testing.B) {
	start, end := date(2015, 1, 3), date(2022, 1, 1)
	for i := 0; i < b.N; i++ {
		WeeklyFileNames(start, end, ".txt")
	}
}
