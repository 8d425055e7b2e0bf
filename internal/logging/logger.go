// Package logging provides config-driven categorized file-based logging.
// Logs are written to <workdir>/logs/ with separate files per category.
// When debug_mode is false in the config, every call is a silent no-op.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"charforge/internal/config"
)

// Category represents a log category.
type Category string

const (
	CategoryBoot       Category = "boot"       // startup, config, shutdown
	CategoryPipeline   Category = "pipeline"   // stage transitions
	CategoryGeneration Category = "generation" // backend calls, retries
	CategoryCheckpoint Category = "checkpoint" // artifact load/save
	CategoryTemplate   Category = "template"   // definition resolution
	CategoryDialogue   Category = "dialogue"   // dialogue accumulation
	CategoryAssembly   Category = "assembly"   // final document build
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	settings  config.LoggingConfig
	logLevel  int
	confMu    sync.RWMutex
)

// Initialize sets up the logging directory from the loaded config.
// Should be called once at startup with the working directory.
func Initialize(workDir string, cfg config.LoggingConfig) error {
	confMu.Lock()
	settings = cfg
	switch cfg.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	confMu.Unlock()

	if !cfg.DebugMode {
		return nil // production mode, no log files
	}
	if workDir == "" {
		return fmt.Errorf("working directory required")
	}

	loggersMu.Lock()
	logsDir = filepath.Join(workDir, "logs")
	loggersMu.Unlock()

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== charforge logging initialized ===")
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", cfg.Level)
	return nil
}

// IsCategoryEnabled returns whether a category is enabled.
// All categories default to enabled in debug mode.
func IsCategoryEnabled(category Category) bool {
	confMu.RLock()
	defer confMu.RUnlock()

	if !settings.DebugMode {
		return false
	}
	if settings.Categories == nil {
		return true
	}
	enabled, exists := settings.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if logsDir == "" {
		loggersMu.RUnlock()
		return &Logger{category: category}
	}
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation trivial
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
	logsDir = ""
}

// RunLogger provides run-scoped logging with a correlation ID.
type RunLogger struct {
	logger *Logger
	runID  string
}

// WithRunID creates a run-scoped logger for a single pipeline execution.
func WithRunID(category Category, runID string) *RunLogger {
	return &RunLogger{logger: Get(category), runID: runID}
}

func (r *RunLogger) Debug(format string, args ...interface{}) {
	r.logger.Debug("[run:%s] %s", r.runID, fmt.Sprintf(format, args...))
}

func (r *RunLogger) Info(format string, args ...interface{}) {
	r.logger.Info("[run:%s] %s", r.runID, fmt.Sprintf(format, args...))
}

func (r *RunLogger) Warn(format string, args ...interface{}) {
	r.logger.Warn("[run:%s] %s", r.runID, fmt.Sprintf(format, args...))
}

func (r *RunLogger) Error(format string, args ...interface{}) {
	r.logger.Error("[run:%s] %s", r.runID, fmt.Sprintf(format, args...))
}

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// Convenience functions; no-ops when the category is disabled.

func Boot(format string, args ...interface{})     { Get(CategoryBoot).Info(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

func Pipeline(format string, args ...interface{})      { Get(CategoryPipeline).Info(format, args...) }
func PipelineDebug(format string, args ...interface{}) { Get(CategoryPipeline).Debug(format, args...) }
func PipelineWarn(format string, args ...interface{})  { Get(CategoryPipeline).Warn(format, args...) }

func Generation(format string, args ...interface{})      { Get(CategoryGeneration).Info(format, args...) }
func GenerationDebug(format string, args ...interface{}) { Get(CategoryGeneration).Debug(format, args...) }
func GenerationWarn(format string, args ...interface{})  { Get(CategoryGeneration).Warn(format, args...) }
func GenerationError(format string, args ...interface{}) { Get(CategoryGeneration).Error(format, args...) }

func Checkpoint(format string, args ...interface{})     { Get(CategoryCheckpoint).Info(format, args...) }
func CheckpointWarn(format string, args ...interface{}) { Get(CategoryCheckpoint).Warn(format, args...) }

func Template(format string, args ...interface{})     { Get(CategoryTemplate).Info(format, args...) }
func TemplateWarn(format string, args ...interface{}) { Get(CategoryTemplate).Warn(format, args...) }

func Dialogue(format string, args ...interface{}) { Get(CategoryDialogue).Info(format, args...) }

func Assembly(format string, args ...interface{}) { Get(CategoryAssembly).Info(format, args...) }
