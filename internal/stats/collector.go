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

package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks the connections/reads/writes/success/not_found/bad
// counters spec.md 6 names for the "stats"/"jstats" socket verbs, both
// as rolling 1s/10s/60s windows and as Prometheus counters for a
// /metrics endpoint.
type Collector struct {
	connections *RingBuffer
	reads       *RingBuffer
	writes      *RingBuffer
	success     *RingBuffer
	notFound    *RingBuffer
	bad         *RingBuffer

	promConnections prometheus.Gauge
	promReads       prometheus.Counter
	promWrites      prometheus.Counter
	promSuccess     prometheus.Counter
	promNotFound    prometheus.Counter
	promBad         prometheus.Counter
}

// New creates a Collector and registers its Prometheus series with
// reg. Passing prometheus.DefaultRegisterer exposes them on the
// default /metrics handler.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connections: NewLeveling(),
		reads:       NewCounting(),
		writes:      NewCounting(),
		success:     NewCounting(),
		notFound:    NewCounting(),
		bad:         NewCounting(),

		promConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trualias", Name: "connections", Help: "Currently open client connections.",
		}),
		promReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trualias", Name: "reads_total", Help: "Total request lines read.",
		}),
		promWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trualias", Name: "writes_total", Help: "Total response lines written.",
		}),
		promSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trualias", Name: "success_total", Help: "Total lookups that verified an alias.",
		}),
		promNotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trualias", Name: "not_found_total", Help: "Total lookups that did not verify.",
		}),
		promBad: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trualias", Name: "bad_total", Help: "Total malformed requests.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.promConnections, c.promReads, c.promWrites, c.promSuccess, c.promNotFound, c.promBad)
	}
	return c
}

func (c *Collector) ConnOpened() {
	c.connections.Add(1)
	c.promConnections.Inc()
}

func (c *Collector) ConnClosed() {
	c.connections.Add(-1)
	c.promConnections.Dec()
}

func (c *Collector) ReadReceived() {
	c.reads.Add(1)
	c.promReads.Inc()
}

func (c *Collector) WriteSent() {
	c.writes.Add(1)
	c.promWrites.Inc()
}

func (c *Collector) Success() {
	c.success.Add(1)
	c.promSuccess.Inc()
}

func (c *Collector) NotFound() {
	c.notFound.Add(1)
	c.promNotFound.Inc()
}

func (c *Collector) Bad() {
	c.bad.Add(1)
	c.promBad.Inc()
}

// Snapshot is the JSON-serializable shape returned by the "jstats"
// socket verb and usable directly for the plain-text "stats" verb.
type Snapshot struct {
	Connections Window `json:"connections"`
	Reads       Window `json:"reads"`
	Writes      Window `json:"writes"`
	Success     Window `json:"success"`
	NotFound    Window `json:"not_found"`
	Bad         Window `json:"bad"`
}

// Stats returns the current rolling-window snapshot across every
// tracked counter.
func (c *Collector) Stats() Snapshot {
	return Snapshot{
		Connections: c.connections.Stats(),
		Reads:       c.reads.Stats(),
		Writes:      c.writes.Stats(),
		Success:     c.success.Stats(),
		NotFound:    c.notFound.Stats(),
		Bad:         c.bad.Stats(),
	}
}
