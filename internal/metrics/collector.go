// Package metrics provides a small Prometheus-exposition-format collector for
// pipeline counters, without pulling in the full client library.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Collector aggregates counters and renders them in exposition format.
type Collector struct {
	mu        sync.Mutex
	counters  map[string]*Counter
	startTime time.Time
}

func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]*Counter),
		startTime: time.Now(),
	}
}

// Counter returns the counter registered under name and labels, creating it
// on first use. Labels is a rendered label set like `stage="generate"` and
// may be empty.
func (c *Collector) Counter(name, help, labels string) *Counter {
	key := name + "{" + labels + "}"

	c.mu.Lock()
	defer c.mu.Unlock()

	if ctr, ok := c.counters[key]; ok {
		return ctr
	}
	ctr := &Counter{name: name, help: help, labels: labels}
	c.counters[key] = ctr
	return ctr
}

// Handler serves the current counter values as text/plain exposition format.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, c.render())
	})
}

func (c *Collector) render() string {
	c.mu.Lock()
	counters := make([]*Counter, 0, len(c.counters))
	for _, ctr := range c.counters {
		counters = append(counters, ctr)
	}
	c.mu.Unlock()

	sort.Slice(counters, func(i, j int) bool {
		if counters[i].name != counters[j].name {
			return counters[i].name < counters[j].name
		}
		return counters[i].labels < counters[j].labels
	})

	var sb strings.Builder
	seen := make(map[string]bool)
	for _, ctr := range counters {
		if !seen[ctr.name] {
			seen[ctr.name] = true
			if ctr.help != "" {
				fmt.Fprintf(&sb, "# HELP %s %s\n", ctr.name, ctr.help)
			}
			fmt.Fprintf(&sb, "# TYPE %s counter\n", ctr.name)
		}
		if ctr.labels == "" {
			fmt.Fprintf(&sb, "%s %d\n", ctr.name, ctr.Value())
		} else {
			fmt.Fprintf(&sb, "%s{%s} %d\n", ctr.name, ctr.labels, ctr.Value())
		}
	}
	fmt.Fprintf(&sb, "# TYPE shopbot_uptime_seconds gauge\nshopbot_uptime_seconds %d\n",
		int64(time.Since(c.startTime).Seconds()))
	return sb.String()
}
