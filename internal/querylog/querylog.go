// Package querylog persists every question/answer interaction as an
// append-only record, in two durable forms: a JSONL file suitable for
// scanning and search, and a CSV file suitable for bulk statistics in
// spreadsheet tools. Records are never mutated after append.
package querylog

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/askdb/askdb/internal/errors"
)

const (
	jsonlFileName = "query_log.jsonl"
	csvFileName   = "query_log.csv"
)

// Record is one logged interaction
type Record struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	SessionID         string    `json:"session_id"`
	OriginalQuestion  string    `json:"original_question"`
	ImprovedQuestion  string    `json:"improved_question"`
	TemplateUsed      string    `json:"template_used"`
	SQLQuery          string    `json:"sql_query"`
	ResultsCount      int       `json:"results_count"`
	Response          string    `json:"conversational_response"`
	ProcessingTimeMS  int64     `json:"processing_time_ms"`
	Success           bool      `json:"success"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	PreprocessingUsed bool      `json:"preprocessing_used"`
}

var csvHeader = []string{
	"id", "timestamp", "session_id", "original_question", "improved_question",
	"template_used", "sql_query", "results_count", "conversational_response",
	"processing_time_ms", "success", "error_message", "preprocessing_used",
}

// Logger appends interaction records to the log directory. Appends are
// serialized; the CSV format is not append-safe under interleaving.
type Logger struct {
	dir string
	mu  sync.Mutex
}

// NewLogger creates a query logger writing into dir, creating it if
// needed.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to create query log directory %s", dir)
	}

	return &Logger{dir: dir}, nil
}

// Append durably records one interaction in both sinks. The record's
// ID is assigned here if unset.
func (l *Logger) Append(record Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	if record.ID == "" {
		record.ID = recordID(record)
	}

	if record.TemplateUsed == "" {
		record.TemplateUsed = "none"
	}

	if err := l.appendJSONL(record); err != nil {
		return err
	}

	return l.appendCSV(record)
}

// recordID derives a stable identifier from timestamp and question
func recordID(record Record) string {
	h := fnv.New32a()
	h.Write([]byte(record.OriginalQuestion))
	h.Write([]byte(record.SessionID))

	return fmt.Sprintf("%s_%04d", record.Timestamp.Format("20060102150405"), h.Sum32()%10000)
}

func (l *Logger) appendJSONL(record Record) error {
	f, err := os.OpenFile(l.jsonlPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to open query log")
	}
	defer f.Close()

	line, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode query log record")
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to append query log record")
	}

	return nil
}

func (l *Logger) appendCSV(record Record) error {
	path := l.csvPath()

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to open query log CSV")
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to write CSV header")
		}
	}

	if err := w.Write(csvRow(record)); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to append CSV record")
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to flush CSV record")
	}

	return nil
}

func csvRow(record Record) []string {
	return []string{
		record.ID,
		record.Timestamp.Format(time.RFC3339),
		record.SessionID,
		record.OriginalQuestion,
		record.ImprovedQuestion,
		record.TemplateUsed,
		record.SQLQuery,
		strconv.Itoa(record.ResultsCount),
		record.Response,
		strconv.FormatInt(record.ProcessingTimeMS, 10),
		strconv.FormatBool(record.Success),
		record.ErrorMessage,
		strconv.FormatBool(record.PreprocessingUsed),
	}
}

// All reads every record from the structured sink in append order. A
// missing log file yields an empty slice.
func (l *Logger) All() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.readAll()
}

func (l *Logger) readAll() ([]Record, error) {
	f, err := os.Open(l.jsonlPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to open query log")
	}
	defer f.Close()

	var records []Record

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			// A torn line must not hide the rest of the log
			continue
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to scan query log")
	}

	return records, nil
}

// Recent returns the n most recent records, newest first
func (l *Logger) Recent(n int) ([]Record, error) {
	records, err := l.All()
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	if n > 0 && len(records) > n {
		records = records[:n]
	}

	return records, nil
}

// Search returns records whose question or response text contains the
// term, case-insensitively, newest first.
func (l *Logger) Search(term string) ([]Record, error) {
	records, err := l.Recent(0)
	if err != nil {
		return nil, err
	}

	termLower := strings.ToLower(term)

	var matches []Record

	for _, record := range records {
		haystack := strings.ToLower(strings.Join([]string{
			record.OriginalQuestion,
			record.ImprovedQuestion,
			record.Response,
		}, "\n"))

		if strings.Contains(haystack, termLower) {
			matches = append(matches, record)
		}
	}

	return matches, nil
}

// TemplateCount pairs a template id with its usage count
type TemplateCount struct {
	Template string
	Count    int
}

// Stats is an aggregate summary of the query log
type Stats struct {
	TotalQueries    int
	SuccessCount    int
	SuccessRate     float64
	AvgProcessingMS float64
	TopTemplates    []TemplateCount
	Oldest          time.Time
	Newest          time.Time
}

// Summarize computes aggregate statistics over the whole log
func (l *Logger) Summarize() (Stats, error) {
	records, err := l.All()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalQueries: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	templateCounts := make(map[string]int)
	totalMS := int64(0)
	stats.Oldest = records[0].Timestamp
	stats.Newest = records[0].Timestamp

	for _, record := range records {
		if record.Success {
			stats.SuccessCount++
		}

		totalMS += record.ProcessingTimeMS
		templateCounts[record.TemplateUsed]++

		if record.Timestamp.Before(stats.Oldest) {
			stats.Oldest = record.Timestamp
		}

		if record.Timestamp.After(stats.Newest) {
			stats.Newest = record.Timestamp
		}
	}

	stats.SuccessRate = float64(stats.SuccessCount) / float64(len(records))
	stats.AvgProcessingMS = float64(totalMS) / float64(len(records))

	for template, count := range templateCounts {
		stats.TopTemplates = append(stats.TopTemplates, TemplateCount{Template: template, Count: count})
	}

	sort.Slice(stats.TopTemplates, func(i, j int) bool {
		if stats.TopTemplates[i].Count != stats.TopTemplates[j].Count {
			return stats.TopTemplates[i].Count > stats.TopTemplates[j].Count
		}

		return stats.TopTemplates[i].Template < stats.TopTemplates[j].Template
	})

	if len(stats.TopTemplates) > 5 {
		stats.TopTemplates = stats.TopTemplates[:5]
	}

	return stats, nil
}

// Export writes the full log as CSV to the given path
func (l *Logger) Export(path string) error {
	records, err := l.All()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to create export file %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to write export header")
	}

	for _, record := range records {
		if err := w.Write(csvRow(record)); err != nil {
			return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to write export record")
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to flush export")
	}

	return nil
}

// Prune removes records older than the retention window and rewrites
// both sinks. Returns the number of records removed.
func (l *Logger) Prune(retention time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.readAll()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-retention)

	var kept []Record

	for _, record := range records {
		if record.Timestamp.After(cutoff) {
			kept = append(kept, record)
		}
	}

	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := l.rewrite(kept); err != nil {
		return 0, err
	}

	return removed, nil
}

// rewrite atomically replaces both sinks with the given record set
func (l *Logger) rewrite(records []Record) error {
	jsonlTmp := l.jsonlPath() + ".tmp"

	jf, err := os.Create(jsonlTmp)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create temporary query log")
	}

	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			jf.Close()
			return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode query log record")
		}

		if _, err := jf.Write(append(line, '\n')); err != nil {
			jf.Close()
			return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to write query log record")
		}
	}

	if err := jf.Close(); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to close temporary query log")
	}

	if err := os.Rename(jsonlTmp, l.jsonlPath()); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to replace query log")
	}

	csvTmp := l.csvPath() + ".tmp"

	cf, err := os.Create(csvTmp)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create temporary query log CSV")
	}

	w := csv.NewWriter(cf)

	if err := w.Write(csvHeader); err != nil {
		cf.Close()
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to write CSV header")
	}

	for _, record := range records {
		if err := w.Write(csvRow(record)); err != nil {
			cf.Close()
			return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to write CSV record")
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		cf.Close()
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to flush CSV")
	}

	if err := cf.Close(); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to close temporary query log CSV")
	}

	if err := os.Rename(csvTmp, l.csvPath()); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to replace query log CSV")
	}

	return nil
}

func (l *Logger) jsonlPath() string {
	return filepath.Join(l.dir, jsonlFileName)
}

func (l *Logger) csvPath() string {
	return filepath.Join(l.dir, csvFileName)
}
