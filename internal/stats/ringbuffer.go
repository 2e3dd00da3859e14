/*
Maddy Mail Server - Composable all-in-one email server.
Copyright 2021, Steve Blinch <dev@blinch.ca>, Max Mazurov <fox.cpp@disroot.org>, Maddy Mail Server contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package stats tracks rolling 1s/10s/60s min/max/average windows for
// the counters spec.md 6 names (connections, reads, writes, success,
// not_found, bad), ported from original_source/python/trualias's
// RingBuffer family, and exposes the same counters as Prometheus
// metrics for a /metrics endpoint.
package stats

import (
	"sync"
	"time"
)

const (
	buckets     = 63
	tenWindow   = 10
	sixtyWindow = 60
)

// retire finalizes a bucket that is about to be overwritten; update
// folds one new sample into the current bucket; carryForward seeds
// the next bucket with the retiring bucket's value instead of zero.
// Together they select averaging, leveling (running-total), or
// counting behavior, matching AveragingRingBuffer/LevelingRingBuffer/
// CountingRingBuffer in the Python original.
type bucketOps struct {
	retire       func(buf []float64, idx int, count int)
	update       func(buf []float64, idx int, value float64) (newCount int)
	carryForward bool
}

var averaging = bucketOps{
	retire: func(buf []float64, idx, count int) {
		if count > 0 {
			buf[idx] /= float64(count)
		}
	},
	update: func(buf []float64, idx int, value float64) int {
		buf[idx] += value
		return 1
	},
}

var leveling = bucketOps{
	retire: func(buf []float64, idx, count int) {},
	update: func(buf []float64, idx int, value float64) int {
		buf[idx] += value
		return 0
	},
	carryForward: true,
}

var counting = bucketOps{
	retire: func(buf []float64, idx, count int) {},
	update: func(buf []float64, idx int, value float64) int {
		buf[idx] += value
		return 0
	},
}

// RingBuffer holds buckets seconds-worth of samples, enough to
// compute exact 1s/10s/60s rolling windows at report time.
type RingBuffer struct {
	mu            sync.Mutex
	ops           bucketOps
	buf           []float64
	idx           int
	currentSecond int64
	count         int
}

func newRingBuffer(ops bucketOps) *RingBuffer {
	return &RingBuffer{ops: ops, buf: make([]float64, buckets), currentSecond: nowSecond()}
}

// NewAveraging returns a buffer that reports the mean of samples
// added within each second-bucket once that bucket is retired; the
// current second's bucket holds the running sum until then.
func NewAveraging() *RingBuffer { return newRingBuffer(averaging) }

// NewLeveling returns a buffer that reports a running total carried
// forward across buckets (e.g. connections currently open).
func NewLeveling() *RingBuffer { return newRingBuffer(leveling) }

// NewCounting returns a buffer that reports the sum of samples added
// within each second-bucket (e.g. events per second).
func NewCounting() *RingBuffer { return newRingBuffer(counting) }

func nowSecond() int64 { return time.Now().Unix() }

func (r *RingBuffer) makeCurrent() {
	now := nowSecond()
	elapsed := now - r.currentSecond
	if elapsed <= 0 {
		return
	}
	if elapsed > buckets {
		elapsed = buckets
	}
	for i := int64(0); i < elapsed; i++ {
		r.ops.retire(r.buf, r.idx, r.count)
		carry := r.buf[r.idx]
		r.count = 0
		r.idx++
		if r.idx >= len(r.buf) {
			r.idx = 0
		}
		if r.ops.carryForward {
			r.buf[r.idx] = carry
		} else {
			r.buf[r.idx] = 0
		}
	}
	r.currentSecond = now
}

// Add records value as a new sample at the current second.
func (r *RingBuffer) Add(value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.makeCurrent()
	added := r.ops.update(r.buf, r.idx, value)
	r.count += added
}

// Window summarizes a RingBuffer's rolling 1s/10s/60s windows.
type Window struct {
	Min, Max, One, Ten, Sixty float64
}

// Stats returns the current rolling window summary.
func (r *RingBuffer) Stats() Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.makeCurrent()

	j := r.idx
	v := r.buf[j]
	w := Window{Min: v, Max: v, One: v}
	accum := v
	for i := 0; i < tenWindow-1; i++ {
		j = (j - 1 + len(r.buf)) % len(r.buf)
		v = r.buf[j]
		if v < w.Min {
			w.Min = v
		}
		if v > w.Max {
			w.Max = v
		}
		accum += v
	}
	w.Ten = accum / float64(tenWindow)
	for i := 0; i < sixtyWindow-tenWindow; i++ {
		j = (j - 1 + len(r.buf)) % len(r.buf)
		v = r.buf[j]
		if v < w.Min {
			w.Min = v
		}
		if v > w.Max {
			w.Max = v
		}
		accum += v
	}
	w.Sixty = accum / float64(sixtyWindow)
	return w
}
