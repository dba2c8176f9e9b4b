// Package zlog 将 zerolog 适配为 kratos log.Logger。
package zlog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/rs/zerolog"
)

var _ log.Logger = (*Logger)(nil)

// Logger kratos 日志接口的 zerolog 实现。
type Logger struct {
	log zerolog.Logger
}

// Option 日志选项。
type Option func(*options)

type options struct {
	level  string
	format string
	out    io.Writer
}

// WithLevel 最低日志级别：debug/info/warn/error。
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

// WithFormat 输出格式：json 或 console。
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithOutput 输出目标，默认 stderr。
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// NewLogger 创建 zerolog 适配器。
func NewLogger(opts ...Option) *Logger {
	o := options{level: "info", format: "json", out: os.Stderr}
	for _, fn := range opts {
		fn(&o)
	}
	out := o.out
	if strings.EqualFold(o.format, "console") {
		out = zerolog.ConsoleWriter{Out: o.out, TimeFormat: "15:04:05"}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(o.level))
	if err != nil || o.level == "" {
		lvl = zerolog.InfoLevel
	}
	return &Logger{log: zerolog.New(out).Level(lvl)}
}

// Log 实现 log.Logger。
func (l *Logger) Log(level log.Level, keyvals ...interface{}) error {
	if len(keyvals) == 0 {
		return nil
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "KEYVALS UNPAIRED")
	}
	var e *zerolog.Event
	switch level {
	case log.LevelDebug:
		e = l.log.Debug()
	case log.LevelInfo:
		e = l.log.Info()
	case log.LevelWarn:
		e = l.log.Warn()
	case log.LevelError:
		e = l.log.Error()
	case log.LevelFatal:
		// 不调用 os.Exit，交给 kratos Helper 处理
		e = l.log.WithLevel(zerolog.FatalLevel)
	default:
		e = l.log.Info()
	}
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		switch v := keyvals[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case string:
			e = e.Str(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Send()
	return nil
}
