// Package logging provides config-driven categorized file-based logging for
// ctoint. Logs are written to <workspace>/.ctoint/logs/ with a separate
// file per category. Logging is controlled by debug_mode in the
// workspace's .ctoint.yaml — when false, no logs are written.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Category names one subsystem's log stream.
type Category string

const (
	CategoryBoot      Category = "boot"       // process startup/shutdown
	CategoryCLI       Category = "cli"        // cobra command execution
	CategoryTokenizer Category = "tokenizer"  // lexing
	CategoryCST       Category = "cst"        // CST grouping
	CategoryAlloc     Category = "alloc"      // allocation-site analysis
	CategoryCallGraph Category = "callgraph"  // call graph build + propagation
	CategoryRewrite   Category = "rewrite"    // signature/body rewriting
	CategoryPatch     Category = "patch"      // patch merging
)

// loggingConfig mirrors the relevant part of config.Config.Logging. It is
// duplicated here (rather than imported) to avoid a cycle with
// internal/config, which itself may want to log during Load.
type loggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

type configFile struct {
	Logging loggingConfig `yaml:"logging"`
}

// Logger wraps a standard logger bound to one category and file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers      = make(map[Category]*Logger)
	loggersMu    sync.RWMutex
	logsDir      string
	workspace    string
	cfg          loggingConfig
	configMu     sync.RWMutex
)

// Initialize sets up the logging directory and loads the workspace's
// .ctoint.yaml. Call once at CLI startup with the workspace root.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}
	workspace = ws
	logsDir = filepath.Join(workspace, ".ctoint", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not load config: %v\n", err)
		cfg.DebugMode = false
	}

	if !cfg.DebugMode {
		return nil // silent no-op outside debug mode
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== ctoint logging initialized ===")
	boot.Info("workspace: %s", workspace)
	boot.Info("debug mode: %v", cfg.DebugMode)
	return nil
}

func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	path := filepath.Join(workspace, ".ctoint.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.DebugMode = false
			return nil
		}
		return err
	}

	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg = cf.Logging
	return nil
}

// ReloadConfig re-reads <workspace>/.ctoint.yaml, for a long-running
// session whose config changed mid-run. Logging always reads that path;
// the CLI's --config flag does not change it.
func ReloadConfig() error {
	return loadConfig()
}

// IsDebugMode reports whether logging is currently enabled.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return cfg.DebugMode
}

func isCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()
	if !cfg.DebugMode {
		return false
	}
	if cfg.Categories == nil {
		return true
	}
	enabled, exists := cfg.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for category. It is a no-op logger
// when debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !isCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
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

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not open log file %s: %v\n", logPath, err)
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

func (l *Logger) write(level, format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...interface{}) { l.write("DEBUG", format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.write("INFO", format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.write("WARN", format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.write("ERROR", format, args...) }

// CloseAll closes every open log file. Call once at process shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

func CLI(format string, args ...interface{})      { Get(CategoryCLI).Info(format, args...) }
func CLIDebug(format string, args ...interface{}) { Get(CategoryCLI).Debug(format, args...) }
func CLIWarn(format string, args ...interface{})  { Get(CategoryCLI).Warn(format, args...) }
func CLIError(format string, args ...interface{}) { Get(CategoryCLI).Error(format, args...) }

func Tokenizer(format string, args ...interface{})      { Get(CategoryTokenizer).Info(format, args...) }
func TokenizerDebug(format string, args ...interface{}) { Get(CategoryTokenizer).Debug(format, args...) }

func CST(format string, args ...interface{})      { Get(CategoryCST).Info(format, args...) }
func CSTDebug(format string, args ...interface{}) { Get(CategoryCST).Debug(format, args...) }

func Alloc(format string, args ...interface{})      { Get(CategoryAlloc).Info(format, args...) }
func AllocDebug(format string, args ...interface{}) { Get(CategoryAlloc).Debug(format, args...) }

func CallGraph(format string, args ...interface{})      { Get(CategoryCallGraph).Info(format, args...) }
func CallGraphDebug(format string, args ...interface{}) { Get(CategoryCallGraph).Debug(format, args...) }

func Rewrite(format string, args ...interface{})      { Get(CategoryRewrite).Info(format, args...) }
func RewriteDebug(format string, args ...interface{}) { Get(CategoryRewrite).Debug(format, args...) }

func Patch(format string, args ...interface{})      { Get(CategoryPatch).Info(format, args...) }
func PatchDebug(format string, args ...interface{}) { Get(CategoryPatch).Debug(format, args...) }
