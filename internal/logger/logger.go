package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 结构化日志接口，kv 为键值对序列
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Err(err error, msg string, kv ...any)
	With(kv ...any) Logger
}

// Options 日志初始化选项
type Options struct {
	Level   string   // debug/info/warn/error
	Writer  []string // console/file
	File    string   // file writer 输出路径
	MaxSize int      // 单个日志文件上限（MB）
}

type zlogger struct {
	zl zerolog.Logger
}

// New 创建 zerolog 实现的 Logger
func New(opts Options) Logger {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	writers := make([]io.Writer, 0, len(opts.Writer))
	for _, w := range opts.Writer {
		switch w {
		case "console":
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
		case "file":
			file := opts.File
			if file == "" {
				file = "permock.log"
			}
			maxSize := opts.MaxSize
			if maxSize <= 0 {
				maxSize = 64
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   file,
				MaxSize:    maxSize,
				MaxBackups: 3,
				Compress:   true,
			})
		}
	}
	if len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	return &zlogger{zl: zl}
}

// NewNop 创建丢弃所有输出的 Logger，用于测试
func NewNop() Logger {
	return &zlogger{zl: zerolog.Nop()}
}

func (l *zlogger) Debug(msg string, kv ...any) {
	l.zl.Debug().Fields(kv).Msg(msg)
}

func (l *zlogger) Info(msg string, kv ...any) {
	l.zl.Info().Fields(kv).Msg(msg)
}

func (l *zlogger) Warn(msg string, kv ...any) {
	l.zl.Warn().Fields(kv).Msg(msg)
}

func (l *zlogger) Error(msg string, kv ...any) {
	l.zl.Error().Fields(kv).Msg(msg)
}

func (l *zlogger) Err(err error, msg string, kv ...any) {
	l.zl.Error().Err(err).Fields(kv).Msg(msg)
}

func (l *zlogger) With(kv ...any) Logger {
	return &zlogger{zl: l.zl.With().Fields(kv).Logger()}
}
