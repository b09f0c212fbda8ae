package logs

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// 定义日志级别常量（数值越大，级别越高）
const (
	LevelTrace   = iota // 0（最低，最详细）
	LevelDebug          // 1
	LevelVerbose        // 2
	LevelInfo           // 3
	LevelWarning        // 4
	LevelError          // 5（最高，最严重）
)

var (
	mu       sync.RWMutex
	logLevel = LevelInfo // 全局日志级别
	prefix   = "vault"   // 每行日志前的节点标识（通常是 vault 地址缩写）
	logger   *Logger
)

// Logger 结构体
type Logger struct {
	traceLogger   *log.Logger
	debugLogger   *log.Logger
	verboseLogger *log.Logger
	infoLogger    *log.Logger
	warnLogger    *log.Logger
	errorLogger   *log.Logger
}

// 初始化全局 Logger 实例
func init() {
	logger = newLogger(os.Stdout, os.Stderr)
}

func newLogger(out, errOut io.Writer) *Logger {
	flags := log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile
	return &Logger{
		traceLogger:   log.New(out, "[TRACE]   ", flags),
		debugLogger:   log.New(out, "[DEBUG]   ", flags),
		verboseLogger: log.New(out, "[VERBOSE] ", flags),
		infoLogger:    log.New(out, "[INFO]    ", flags),
		warnLogger:    log.New(out, "[WARN]    ", flags),
		errorLogger:   log.New(errOut, "[ERROR]   ", flags),
	}
}

// SetOutput 重定向全部级别的输出（测试用）
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, w)
}

// SetLevel 按名称设置级别：trace/debug/verbose/info/warn/error，未知名称保持不变
func SetLevel(name string) bool {
	lvl, ok := map[string]int{
		"trace":   LevelTrace,
		"debug":   LevelDebug,
		"verbose": LevelVerbose,
		"info":    LevelInfo,
		"warn":    LevelWarning,
		"warning": LevelWarning,
		"error":   LevelError,
	}[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return false
	}
	mu.Lock()
	logLevel = lvl
	mu.Unlock()
	return true
}

// SetPrefix 设置行首标识，超过 10 个字符时截断
func SetPrefix(p string) {
	if len(p) > 10 {
		p = p[:10]
	}
	mu.Lock()
	prefix = p
	mu.Unlock()
}

func output(level int, pick func(*Logger) *log.Logger, format string, v ...interface{}) {
	mu.RLock()
	enabled := logLevel <= level
	l := pick(logger)
	p := prefix
	mu.RUnlock()
	if !enabled {
		return
	}
	// calldepth=3：跳过 output 与包级函数，定位到调用方
	_ = l.Output(3, p+" "+sprintf(format, v...))
}

// 包级别的日志方法
func Trace(format string, v ...interface{}) {
	output(LevelTrace, func(l *Logger) *log.Logger { return l.traceLogger }, format, v...)
}

func Debug(format string, v ...interface{}) {
	output(LevelDebug, func(l *Logger) *log.Logger { return l.debugLogger }, format, v...)
}

func Verbose(format string, v ...interface{}) {
	output(LevelVerbose, func(l *Logger) *log.Logger { return l.verboseLogger }, format, v...)
}

func Info(format string, v ...interface{}) {
	output(LevelInfo, func(l *Logger) *log.Logger { return l.infoLogger }, format, v...)
}

func Warn(format string, v ...interface{}) {
	output(LevelWarning, func(l *Logger) *log.Logger { return l.warnLogger }, format, v...)
}

func Error(format string, v ...interface{}) {
	output(LevelError, func(l *Logger) *log.Logger { return l.errorLogger }, format, v...)
}
