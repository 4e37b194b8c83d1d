package metrics

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestCounterConcurrentInc(t *testing.T) {
	c := NewCollector()
	ctr := c.Counter("test_total", "test counter", "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctr.Inc()
		}()
	}
	wg.Wait()

	if ctr.Value() != 50 {
		t.Errorf("value = %d, want 50", ctr.Value())
	}
}

func TestCounterReusedByKey(t *testing.T) {
	c := NewCollector()
	a := c.Counter("x_total", "", `stage="a"`)
	b := c.Counter("x_total", "", `stage="a"`)
	if a != b {
		t.Error("same name and labels should return the same counter")
	}
	if other := c.Counter("x_total", "", `stage="b"`); other == a {
		t.Error("different labels should be distinct counters")
	}
}

func TestHandlerExposition(t *testing.T) {
	c := NewCollector()
	c.Counter("events_total", "Events seen.", "").Inc()
	c.Counter("failures_total", "", `stage="deliver"`).Inc()

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body := rr.Body.String()
	for _, want := range []string{
		"# TYPE events_total counter",
		"events_total 1",
		`failures_total{stage="deliver"} 1`,
		"shopbot_uptime_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q:\n%s", want, body)
		}
	}
}
