package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LogConfig holds configuration for the logging middleware
type LogConfig struct {
	// Enable console logging
	Console bool
	// Enable file logging
	File bool
	// Log file path
	LogFilePath string
	// Log format: "json" or "text"
	Format string
	// Include request body in logs
	IncludeBody bool
	// Skip logging for specific paths
	SkipPaths []string
}

// LogData is one request line. GET /api/logs reads these back.
type LogData struct {
	Timestamp     time.Time     `json:"timestamp"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	URL           string        `json:"url"`
	Status        int           `json:"status"`
	Latency       time.Duration `json:"latency"`
	IP            string        `json:"ip"`
	UserAgent     string        `json:"user_agent"`
	RequestID     string        `json:"request_id"`
	RequestBody   interface{}   `json:"request_body,omitempty"`
	Error         string        `json:"error,omitempty"`
	EmployeeID    string        `json:"employee_id,omitempty"`
	EmployeeName  string        `json:"employee_name,omitempty"`
	Privileged    bool          `json:"privileged,omitempty"`
	ContentLength int64         `json:"content_length"`
}

const (
	DefaultRequestLog = "logs/requests.log"
	DefaultErrorLog   = "logs/errors.log"
)

// DefaultLogConfig returns a default configuration for the logging middleware
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Console:     true,
		File:        true,
		LogFilePath: DefaultRequestLog,
		Format:      "json",
		SkipPaths:   []string{"/", "/api/health", "/api/keepalive", "/favicon.ico", "/favicon.png"},
	}
}

// LoggingMiddleware creates a new logging middleware with the given configuration
func LoggingMiddleware(config ...LogConfig) fiber.Handler {
	cfg := DefaultLogConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.File {
		ensureDir(cfg.LogFilePath)
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := skip[c.Path()]; ok {
			return c.Next()
		}
		start := time.Now()

		var requestBody interface{}
		if cfg.IncludeBody && c.Method() != fiber.MethodGet {
			if body := c.Body(); len(body) > 0 {
				var jsonData interface{}
				if err := json.Unmarshal(body, &jsonData); err == nil {
					requestBody = redact(jsonData)
				} else {
					requestBody = string(body)
				}
			}
		}

		err := c.Next()

		data := collect(c, start, err)
		data.RequestBody = requestBody
		data.ContentLength = int64(len(c.Response().Body()))
		logRequest(cfg, data)

		return err
	}
}

// ErrorLogger writes every response with status >= 400 to path.
func ErrorLogger(path string) fiber.Handler {
	if path == "" {
		path = DefaultErrorLog
	}
	ensureDir(path)

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			data := collect(c, start, err)
			jsonData, _ := json.Marshal(data)
			logToFile(path, string(jsonData))
		}
		return err
	}
}

func collect(c *fiber.Ctx, start time.Time, err error) LogData {
	data := LogData{
		Timestamp: start,
		Method:    c.Method(),
		Path:      c.Path(),
		URL:       c.OriginalURL(),
		Status:    c.Response().StatusCode(),
		Latency:   time.Since(start),
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		RequestID: c.Get(fiber.HeaderXRequestID),
	}
	if session, ok := SessionFrom(c); ok {
		data.EmployeeID = session.Employee.ID
		data.EmployeeName = session.Employee.Name
		data.Privileged = session.Privileged
	}
	if err != nil {
		data.Error = err.Error()
		if fe, ok := err.(*fiber.Error); ok {
			data.Status = fe.Code
		}
	}
	return data
}

// redact hides password fields from logged bodies.
func redact(v interface{}) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	for _, key := range []string{"password", "new_password"} {
		if _, ok := m[key]; ok {
			m[key] = "***"
		}
	}
	return m
}

func logRequest(cfg LogConfig, data LogData) {
	var logMessage string
	switch cfg.Format {
	case "json":
		jsonData, _ := json.Marshal(data)
		logMessage = string(jsonData)
	default:
		logMessage = formatTextLog(data)
	}

	if cfg.Console {
		log.Println(logMessage)
	}
	if cfg.File {
		logToFile(cfg.LogFilePath, logMessage)
	}
}

func formatTextLog(data LogData) string {
	employee := ""
	if data.EmployeeID != "" {
		employee = fmt.Sprintf(" employee:%s(%s)", data.EmployeeID, data.EmployeeName)
	}
	return fmt.Sprintf(
		"[%s] %s %s %d %s %s%s",
		data.Timestamp.Format("2006-01-02 15:04:05"),
		data.Method,
		data.Path,
		data.Status,
		data.Latency,
		data.IP,
		employee,
	)
}

var fileMu sync.Mutex

func ensureDir(path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("Error creating logs directory: %v\n", err)
	}
}

// logToFile appends one line to the log file
func logToFile(filePath, message string) {
	fileMu.Lock()
	defer fileMu.Unlock()

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Error opening log file: %v\n", err)
		return
	}
	defer file.Close()

	if len(message) > 0 && message[len(message)-1] != '\n' {
		message += "\n"
	}
	if _, err := file.WriteString(message); err != nil {
		log.Printf("Error writing to log file: %v\n", err)
	}
}
