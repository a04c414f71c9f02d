package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCounters(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		m := NewManager(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

		Convey("When embedding requests and cache hits are recorded", func() {
			m.RecordEmbeddingRequest(3, 120*time.Millisecond)
			m.RecordEmbeddingFailure(1)
			m.RecordCacheHit(LayerMemory)
			m.RecordCacheHit(LayerMemory)
			m.RecordCacheHit(LayerStore)

			Convey("Then the counters reflect them", func() {
				So(testutil.ToFloat64(m.embeddingsRequested), ShouldEqual, 3)
				So(testutil.ToFloat64(m.embeddingFailures), ShouldEqual, 1)
				So(testutil.ToFloat64(m.cacheHits.WithLabelValues(LayerMemory)), ShouldEqual, 2)
				So(testutil.ToFloat64(m.cacheHits.WithLabelValues(LayerStore)), ShouldEqual, 1)
			})
		})

		Convey("When label outcomes are recorded", func() {
			m.RecordLabelEvent("reject", "applied")
			m.RecordLabelEvent("reject", "coalesced")

			Convey("Then they are split by outcome", func() {
				So(testutil.ToFloat64(m.labelEvents.WithLabelValues("reject", "applied")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.labelEvents.WithLabelValues("reject", "coalesced")), ShouldEqual, 1)
			})
		})
	})
}

func TestManagerDisabled(t *testing.T) {
	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithMetricsEnabled(false))
		m.RecordScored(10, 2)
		m.RecordModelTrained()

		Convey("Then nothing is counted", func() {
			So(testutil.ToFloat64(m.wordsScored), ShouldEqual, 0)
			So(testutil.ToFloat64(m.modelsTrained), ShouldEqual, 0)
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a manager with a recorded distillation", t, func() {
		m := NewManager()
		m.SetDistilledWords(42)
		path := filepath.Join(t.TempDir(), "wordlist.prom")

		Convey("When written as a textfile", func() {
			err := m.WriteTextfile(path)
			So(err, ShouldBeNil)

			Convey("Then the file holds the gauge", func() {
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(strings.Contains(string(data), "wordlist_curate_output_words 42"), ShouldBeTrue)
			})
		})
	})
}

func TestDefaultSwap(t *testing.T) {
	Convey("Given a replacement default manager", t, func() {
		m := NewManager()
		prev := SetDefault(m)
		defer SetDefault(prev)

		So(Default(), ShouldEqual, m)
	})
}
