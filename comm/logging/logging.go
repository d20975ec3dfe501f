// Package logging 提供全局默认日志器，基于 zap，文件输出通过 lumberjack 滚动。
//
// 环境变量:
//
//	SMPP_LOGGING_LEVEL  日志级别，取值为 zapcore.Level 的整数值，-1 为 debug，默认 info
//	SMPP_LOGGING_FILE   日志文件路径，为空时输出到控制台
package logging

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level 日志级别
type Level = zapcore.Level

const (
	DebugLevel Level = zapcore.DebugLevel
	InfoLevel  Level = zapcore.InfoLevel
	WarnLevel  Level = zapcore.WarnLevel
	ErrorLevel Level = zapcore.ErrorLevel
	FatalLevel Level = zapcore.FatalLevel
)

// Logger 与 gnet/v2/pkg/logging.Logger 方法集一致，可直接传给 gnet.WithLogger
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

var (
	mu                  sync.RWMutex
	defaultLogger       Logger
	defaultLoggingLevel Level
	defaultFlusher      func() error
)

func init() {
	lvl := os.Getenv("SMPP_LOGGING_LEVEL")
	if len(lvl) > 0 {
		loggingLevel, err := strconv.ParseInt(lvl, 10, 8)
		if err != nil {
			panic("invalid SMPP_LOGGING_LEVEL, " + err.Error())
		}
		defaultLoggingLevel = Level(loggingLevel)
	}

	fileName := os.Getenv("SMPP_LOGGING_FILE")
	if len(fileName) > 0 {
		var err error
		defaultLogger, defaultFlusher, err = CreateLoggerAsLocalFile(fileName, defaultLoggingLevel)
		if err != nil {
			panic("invalid SMPP_LOGGING_FILE, " + err.Error())
		}
		return
	}

	defaultLogger, defaultFlusher = createConsoleLogger(defaultLoggingLevel)
}

func createConsoleLogger(level Level) (Logger, func() error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapLogger, _ := cfg.Build(zap.AddCallerSkip(1))
	return zapLogger.Sugar(), zapLogger.Sync
}

// CreateLoggerAsLocalFile 创建输出到本地文件的日志器，文件按大小滚动
func CreateLoggerAsLocalFile(localFilePath string, logLevel Level) (logger Logger, flush func() error, err error) {
	if len(localFilePath) == 0 {
		return nil, nil, errors.New("invalid local logger path")
	}

	// lumberjack.Logger is already safe for concurrent use, so we don't need to lock it.
	lumberJackLogger := &lumberjack.Logger{
		Filename:   localFilePath,
		MaxSize:    100, // megabytes
		MaxBackups: 2,
		MaxAge:     15, // days
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)
	ws := zapcore.AddSync(lumberJackLogger)

	levelEnabler := zap.LevelEnablerFunc(func(level Level) bool {
		return level >= logLevel
	})
	core := zapcore.NewCore(encoder, ws, levelEnabler)
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	logger = zapLogger.Sugar()
	flush = zapLogger.Sync
	return
}

// ParseLevel 解析配置文件中的级别名称，如 debug、info、warn、error
func ParseLevel(text string) (Level, error) {
	var l Level
	if len(text) == 0 {
		return InfoLevel, nil
	}
	err := l.UnmarshalText([]byte(strings.ToLower(text)))
	return l, err
}

// Setup 按配置重建默认日志器，file 为空时输出到控制台
func Setup(level string, file string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	var (
		logger Logger
		flush  func() error
	)
	if len(file) > 0 {
		logger, flush, err = CreateLoggerAsLocalFile(file, lvl)
		if err != nil {
			return err
		}
	} else {
		logger, flush = createConsoleLogger(lvl)
	}

	mu.Lock()
	old := defaultFlusher
	defaultLogger, defaultFlusher, defaultLoggingLevel = logger, flush, lvl
	mu.Unlock()
	if old != nil {
		_ = old()
	}
	return nil
}

// GetDefaultLogger 返回默认日志器
func GetDefaultLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// GetDefaultLoggingLevel 返回默认日志级别
func GetDefaultLoggingLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLoggingLevel
}

// Cleanup 刷新缓冲的日志
func Cleanup() {
	mu.RLock()
	flush := defaultFlusher
	mu.RUnlock()
	if flush != nil {
		_ = flush()
	}
}

// Nop 丢弃全部日志，测试中使用
func Nop() Logger {
	return zap.NewNop().Sugar()
}

func Debugf(format string, args ...interface{}) {
	GetDefaultLogger().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	GetDefaultLogger().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	GetDefaultLogger().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	GetDefaultLogger().Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	GetDefaultLogger().Fatalf(format, args...)
}
