package main

import (
	"io"
	"log/slog"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alfredjeanlab/varhub/internal/config"
)

// Log file retention.
const (
	logFileMaxSizeMB  = 100
	logFileMaxBackups = 31
)

// newLogger builds the server logger. Records always go to w; when
// cfg.LogFile is set they are also appended to that file, which rolls over
// at local midnight and when it grows past logFileMaxSizeMB. The returned
// func releases the file.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFile == "" {
		return slog.New(slog.NewTextHandler(w, opts)), func() error { return nil }
	}
	f := openDailyLog(cfg.LogFile, time.Now)
	return slog.New(slog.NewTextHandler(io.MultiWriter(w, f), opts)), f.Close
}

// dailyLog is a lumberjack file that is also rotated once a day.
type dailyLog struct {
	*lumberjack.Logger
	stop chan struct{}
	done chan struct{}
}

func openDailyLog(path string, now func() time.Time) *dailyLog {
	l := &dailyLog{
		Logger: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			LocalTime:  true,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.rollDaily(now)
	return l
}

func (l *dailyLog) rollDaily(now func() time.Time) {
	defer close(l.done)
	for {
		timer := time.NewTimer(untilMidnight(now()))
		select {
		case <-timer.C:
			_ = l.Rotate()
		case <-l.stop:
			timer.Stop()
			return
		}
	}
}

func (l *dailyLog) Close() error {
	close(l.stop)
	<-l.done
	return l.Logger.Close()
}

// untilMidnight returns the time left until the next local midnight.
func untilMidnight(t time.Time) time.Duration {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Sub(t)
}
