package Controllers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"ClientMax/middleware"

	"github.com/gofiber/fiber/v2"
)

// LogGroup aggregates request lines by method and path
type LogGroup struct {
	Path        string               `json:"path"`
	Method      string               `json:"method"`
	Count       int                  `json:"count"`
	AvgLatency  float64              `json:"avg_latency_ms"`
	MaxLatency  float64              `json:"max_latency_ms"`
	SuccessRate float64              `json:"success_rate"`
	Logs        []middleware.LogData `json:"logs"`
}

type LogsResponse struct {
	Groups      []LogGroup `json:"groups"`
	TotalLogs   int        `json:"total_logs"`
	TotalGroups int        `json:"total_groups"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
	TotalPages  int        `json:"total_pages"`
	DateFrom    time.Time  `json:"date_from"`
	DateTo      time.Time  `json:"date_to"`
}

// LogsController serves the request log written by middleware.LoggingMiddleware.
type LogsController struct {
	Path string
	Now  func() time.Time
}

func NewLogsController(path string) *LogsController {
	if path == "" {
		path = middleware.DefaultRequestLog
	}
	return &LogsController{Path: path, Now: time.Now}
}

// GetLogs returns request lines grouped by endpoint, paginated by group.
// Query: page, page_size, date_from, date_to, path, method, status, employee_id.
func (lc *LogsController) GetLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 50
	}

	dateFrom, dateTo, err := lc.dateRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	entries, err := readLogs(lc.Path, dateFrom, dateTo)
	if err != nil {
		log.Printf("Error reading logs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read logs",
		})
	}

	entries = filterLogs(entries, c.Query("path"), c.Query("method"), c.Query("status"), c.Query("employee_id"))
	groups := groupLogs(entries)

	totalGroups := len(groups)
	start := (page - 1) * pageSize
	if start > totalGroups {
		start = totalGroups
	}
	end := start + pageSize
	if end > totalGroups {
		end = totalGroups
	}

	return c.JSON(LogsResponse{
		Groups:      groups[start:end],
		TotalLogs:   len(entries),
		TotalGroups: totalGroups,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  (totalGroups + pageSize - 1) / pageSize,
		DateFrom:    dateFrom,
		DateTo:      dateTo,
	})
}

// GetLogStats returns totals for the date range.
func (lc *LogsController) GetLogStats(c *fiber.Ctx) error {
	dateFrom, dateTo, err := lc.dateRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	entries, err := readLogs(lc.Path, dateFrom, dateTo)
	if err != nil {
		log.Printf("Error reading logs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read logs",
		})
	}

	var successful, failed int
	var totalLatency time.Duration
	statusStats := make(map[int]int)
	employeeStats := make(map[string]int)
	for _, e := range entries {
		switch {
		case e.Status >= 200 && e.Status < 300:
			successful++
		case e.Status >= 400:
			failed++
		}
		totalLatency += e.Latency
		statusStats[e.Status]++
		if e.EmployeeName != "" {
			employeeStats[e.EmployeeName]++
		}
	}

	avg := 0.0
	rate := 0.0
	if len(entries) > 0 {
		avg = float64((totalLatency / time.Duration(len(entries))).Microseconds()) / 1000.0
		rate = float64(successful) / float64(len(entries)) * 100
	}

	return c.JSON(fiber.Map{
		"total_requests":      len(entries),
		"successful_requests": successful,
		"error_requests":      failed,
		"success_rate":        rate,
		"avg_latency_ms":      avg,
		"status_stats":        statusStats,
		"employee_stats":      employeeStats,
		"date_from":           dateFrom,
		"date_to":             dateTo,
	})
}

// dateRange defaults to today when neither bound is given.
func (lc *LogsController) dateRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	now := lc.Now()
	fromStr, toStr := c.Query("date_from"), c.Query("date_to")
	if fromStr == "" && toStr == "" {
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return from, from.Add(24*time.Hour - time.Nanosecond), nil
	}

	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	to := now
	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("Invalid date_from format. Use YYYY-MM-DD")
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("Invalid date_to format. Use YYYY-MM-DD")
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

// readLogs reads JSON lines within [from, to]. A missing file is an empty log.
func readLogs(path string, from, to time.Time) ([]middleware.LogData, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []middleware.LogData
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry middleware.LogData
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Timestamp.Before(from) || entry.Timestamp.After(to) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

func filterLogs(entries []middleware.LogData, path, method, status, employeeID string) []middleware.LogData {
	wantStatus, statusErr := strconv.Atoi(status)
	var filtered []middleware.LogData
	for _, e := range entries {
		if path != "" && !strings.Contains(strings.ToLower(e.Path), strings.ToLower(path)) {
			continue
		}
		if method != "" && !strings.EqualFold(e.Method, method) {
			continue
		}
		if status != "" && statusErr == nil && e.Status != wantStatus {
			continue
		}
		if employeeID != "" && e.EmployeeID != employeeID {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// groupLogs groups by "METHOD path", busiest first.
func groupLogs(entries []middleware.LogData) []LogGroup {
	index := make(map[string]int)
	var groups []LogGroup
	for _, e := range entries {
		key := fmt.Sprintf("%s %s", e.Method, e.Path)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, LogGroup{Path: e.Path, Method: e.Method})
		}
		g := &groups[i]
		latency := float64(e.Latency.Microseconds()) / 1000.0
		success := 0.0
		if e.Status >= 200 && e.Status < 300 {
			success = 1.0
		}
		g.Count++
		g.AvgLatency += (latency - g.AvgLatency) / float64(g.Count)
		g.SuccessRate += (success - g.SuccessRate) / float64(g.Count)
		if latency > g.MaxLatency {
			g.MaxLatency = latency
		}
		g.Logs = append(g.Logs, e)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups
}
