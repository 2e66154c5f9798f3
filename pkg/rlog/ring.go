package rlog

import (
	"container/ring"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// history is the process-wide ring buffer fed by log()/logln() once
// EnableHistory has been called; nil (the default) means no buffering,
// so a process that never asks for history pays nothing for it.
var history *Ring

// EnableHistory turns on in-memory retention of the last size log
// lines, so that an "info"-class request can answer with recent
// activity (rserver's OpInfo fallback, via RecentHistory) without
// reading a log file back off disk.
func EnableHistory(size int) {
	logLock.Lock()
	defer logLock.Unlock()

	history = NewRing(size)
}

// RecentHistory returns the buffered log lines, oldest first, or nil
// if EnableHistory was never called.
func RecentHistory() []string {
	logLock.RLock()
	h := history
	logLock.RUnlock()

	if h == nil {
		return nil
	}
	return h.Dump()
}

// Ring is an in-memory circular log buffer, useful for attaching to a
// running server so that `info`-class requests can return recent log
// lines without reading a log file from disk.
type Ring struct {
	size int

	mu sync.Mutex
	r  *ring.Ring
}

func NewRing(size int) *Ring {
	return &Ring{
		r:    ring.New(size),
		size: size,
	}
}

// Println mimics golang's log.Logger.Output and prepends the time.
func (l *Ring) Println(v ...interface{}) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	var buf []byte

	year, month, day := now.Date()
	buf = strconv.AppendInt(buf, int64(year), 10)
	buf = append(buf, '/')
	buf = strconv.AppendInt(buf, int64(month), 10)
	buf = append(buf, '/')
	buf = strconv.AppendInt(buf, int64(day), 10)
	buf = append(buf, ' ')

	hour, min, sec := now.Clock()
	buf = strconv.AppendInt(buf, int64(hour), 10)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, int64(min), 10)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, int64(sec), 10)
	buf = append(buf, ' ')

	buf = append(buf, fmt.Sprintln(v...)...)

	l.r = l.r.Next()
	l.r.Value = string(buf)
}

// Dump returns the log messages from oldest to newest.
func (l *Ring) Dump() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := make([]string, 0, l.size)

	l.r.Next().Do(func(v interface{}) {
		if v == nil {
			return
		}

		res = append(res, v.(string))
	})

	return res
}
