package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// FilePrefix is the naming prefix of weekly turnstile files
	FilePrefix = "turnstile_"

	// FileDateLayout is the date embedded in file names (YYMMDD)
	FileDateLayout = "060102"

	// DefaultExt is the extension of published weekly files
	DefaultExt = ".txt"
)

// PublishDay is the weekday weekly files are dated on
const PublishDay = time.Saturday

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Date    time.Time
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FileName builds the weekly file name for a publish date
func FileName(date time.Time, ext string) string {
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return FilePrefix + date.Format(FileDateLayout) + ext
}

// ParseFileDate extracts the publish date from a weekly file name
func ParseFileDate(name string) (time.Time, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, FilePrefix) {
		return time.Time{}, false
	}
	stem := strings.TrimSuffix(strings.TrimPrefix(base, FilePrefix), filepath.Ext(base))
	date, err := time.Parse(FileDateLayout, stem)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// WeeklyFileNames lists the weekly file names published in [start, end).
// start is advanced to the next publish day (or kept if it is one), then
// stepped by seven days.
func WeeklyFileNames(start, end time.Time, ext string) []string {
	offset := (int(PublishDay) - int(start.Weekday()) + 7) % 7
	date := start.AddDate(0, 0, offset)

	var names []string
	for date.Before(end) {
		names = append(names, FileName(date, ext))
		date = date.AddDate(0, 0, 7)
	}
	return names
}

// FilesInRange returns the weekly file names for [start, end) resolved
// against dir, merged with any other dated file of the same extension in dir
// whose date falls in the range, ordered by date. Missing weekly files are
// still returned so the caller can report them.
func (d *Discovery) FilesInRange(dir string, start, end time.Time, ext string) []string {
	if ext == "" {
		ext = DefaultExt
	}
	fullPath := d.resolve(dir)

	byPath := make(map[string]FileInfo)
	for _, name := range WeeklyFileNames(start, end, ext) {
		date, _ := ParseFileDate(name)
		path := filepath.Join(fullPath, name)
		byPath[path] = FileInfo{Path: path, Name: name, Date: date}
	}

	// an unreadable directory leaves only the weekly names
	if found, err := d.FindTurnstileFiles(dir); err == nil {
		for _, f := range FilterFilesByDateRange(found, start, end) {
			if strings.EqualFold(filepath.Ext(f.Name), ext) {
				byPath[f.Path] = f
			}
		}
	}

	merged := make([]FileInfo, 0, len(byPath))
	for _, f := range byPath {
		merged = append(merged, f)
	}
	sortByDate(merged)
	return Paths(merged)
}

// FindTurnstileFiles lists weekly turnstile files in dir ordered by the date
// in their name.
func (d *Discovery) FindTurnstileFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".txt" && ext != ".csv" && ext != ".xlsx" {
			continue
		}
		date, ok := ParseFileDate(name)
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Date:    date,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sortByDate(files)
	return files, nil
}

func sortByDate(files []FileInfo) {
	sort.Slice(files, func(i, j int) bool {
		if !files[i].Date.Equal(files[j].Date) {
			return files[i].Date.Before(files[j].Date)
		}
		return files[i].Name < files[j].Name
	})
}

// FilterFilesByDateRange keeps files whose name date falls in [start, end)
func FilterFilesByDateRange(files []FileInfo, start, end time.Time) []FileInfo {
	var filtered []FileInfo
	for _, file := range files {
		if !file.Date.Before(start) && file.Date.Before(end) {
			filtered = append(filtered, file)
		}
	}
	return filtered
}

// Paths returns the paths of the files in order
func Paths(files []FileInfo) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
