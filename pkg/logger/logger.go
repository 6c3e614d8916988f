package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	//Logger is silent until InitLogger is called, so library users and tests get no output
	Logger      = zap.NewNop()
	GlobalLevel = zap.NewAtomicLevel()
)

func formatEncodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(fmt.Sprintf("%d%02d%02d_%02d%02d%02d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second()))
}

//getLogWriter returns a size/age rotated file writer
func getLogWriter(logPath string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100, //MB
		MaxBackups: 7,
		MaxAge:     7, //days
		Compress:   false,
	})
}

//ParseLevel maps a config string to a zap level, debug when unknown
func ParseLevel(logLevel string) zapcore.Level {
	switch strings.ToLower(logLevel) {
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.DebugLevel
	}
}

//InitLogger replaces Logger with one writing JSON to logDir/labeler.log, errors also to logDir/error_labeler.log, and a console copy to stdout
func InitLogger(logLevel, logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("InitLogger: Could not create '%s', got '%v'", logDir, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "trace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     formatEncodeTime,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	GlobalLevel.SetLevel(ParseLevel(logLevel))

	errorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), getLogWriter(filepath.Join(logDir, "labeler.log")), GlobalLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), getLogWriter(filepath.Join(logDir, "error_labeler.log")), errorLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), GlobalLevel),
	)

	Logger = zap.New(core, zap.AddCaller())
	return nil
}

//Sync flushes buffered log entries, call before exit
func Sync() {
	_ = Logger.Sync()
}
