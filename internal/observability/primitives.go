package observability

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Minimal Prometheus text-format collectors. Label values are positional; missing or empty
// values are exported as "unknown".

type collector interface {
	WritePrometheus(w io.Writer) error
}

// family is the state shared by every vector type: header metadata plus series keyed by their
// rendered label set.
type family[S any] struct {
	name, help, kind string
	labels           []string

	mu     sync.Mutex
	series map[string]S
}

func (f *family[S]) init(name, help, kind string, labels []string) {
	f.name, f.help, f.kind, f.labels = name, help, kind, labels
	f.series = map[string]S{}
}

// update runs fn on the series for values under the family lock.
func (f *family[S]) update(values []string, fn func(*S)) {
	key := labelString(f.labels, values)
	f.mu.Lock()
	s := f.series[key]
	fn(&s)
	f.series[key] = s
	f.mu.Unlock()
}

func (f *family[S]) get(values []string) S {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.series[labelString(f.labels, values)]
}

// write emits the header and then each series in label order via line.
func (f *family[S]) write(w io.Writer, line func(bw *bufio.Writer, labels string, s S)) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("# HELP " + f.name + " " + f.help + "\n# TYPE " + f.name + " " + f.kind + "\n")
	f.mu.Lock()
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line(bw, k, f.series[k])
	}
	f.mu.Unlock()
	return bw.Flush()
}

func writeSample(bw *bufio.Writer, name, labels string, v float64) {
	bw.WriteString(name + labels + " " + strconv.FormatFloat(v, 'g', -1, 64) + "\n")
}

// CounterVec only goes up.
type CounterVec struct{ f family[float64] }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	c := &CounterVec{}
	c.f.init(name, help, "counter", labels)
	return c
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

// Add ignores negative deltas.
func (c *CounterVec) Add(delta float64, values ...string) {
	if c == nil || delta < 0 {
		return
	}
	c.f.update(values, func(v *float64) { *v += delta })
}

func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	return c.f.get(values)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.f.write(w, func(bw *bufio.Writer, labels string, v float64) { writeSample(bw, c.f.name, labels, v) })
}

// GaugeVec holds values that can be set or moved either way.
type GaugeVec struct{ f family[float64] }

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	g := &GaugeVec{}
	g.f.init(name, help, "gauge", labels)
	return g
}

func (g *GaugeVec) Set(v float64, values ...string) {
	if g != nil {
		g.f.update(values, func(cur *float64) { *cur = v })
	}
}

func (g *GaugeVec) Add(delta float64, values ...string) {
	if g != nil {
		g.f.update(values, func(cur *float64) { *cur += delta })
	}
}

func (g *GaugeVec) Value(values ...string) float64 {
	if g == nil {
		return 0
	}
	return g.f.get(values)
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.f.write(w, func(bw *bufio.Writer, labels string, v float64) { writeSample(bw, g.f.name, labels, v) })
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// HistogramVec counts observations into cumulative upper-bound buckets.
type HistogramVec struct {
	f       family[histogram]
	buckets []float64
}

type histogram struct {
	le    []uint64 // le[i] counts observations <= buckets[i]
	sum   float64
	count uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	h := &HistogramVec{buckets: sorted}
	h.f.init(name, help, "histogram", labels)
	return h
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	h.f.update(values, func(s *histogram) {
		if s.le == nil {
			s.le = make([]uint64, len(h.buckets))
		}
		// Buckets are sorted, so every bound from the first match upward includes v.
		for i := sort.SearchFloat64s(h.buckets, v); i < len(h.buckets); i++ {
			s.le[i]++
		}
		s.sum += v
		s.count++
	})
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	name := h.f.name
	return h.f.write(w, func(bw *bufio.Writer, labels string, s histogram) {
		for i, bound := range h.buckets {
			writeSample(bw, name+"_bucket", withLe(labels, strconv.FormatFloat(bound, 'g', -1, 64)), float64(s.le[i]))
		}
		writeSample(bw, name+"_bucket", withLe(labels, "+Inf"), float64(s.count))
		writeSample(bw, name+"_sum", labels, s.sum)
		writeSample(bw, name+"_count", labels, float64(s.count))
	})
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	pairs := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) && values[i] != "" {
			val = values[i]
		}
		pairs[i] = name + `="` + labelEscaper.Replace(val) + `"`
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

func withLe(labels string, le string) string {
	if labels == "" {
		return `{le="` + le + `"}`
	}
	return strings.TrimSuffix(labels, "}") + `,le="` + le + `"}`
}
