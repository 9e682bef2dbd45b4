package trainer

import (
	"log"
	"time"

	"github.com/neurlang/ffsnn/net/feedforward"
)

// LogObserver logs training progress every Every epochs.
type LogObserver struct {
	Every  int
	Logger *log.Logger // nil logs through the standard logger

	start time.Time
}

// NewLogObserver logs every n epochs.
func NewLogObserver(n int) *LogObserver {
	return &LogObserver{Every: n}
}

func (o *LogObserver) printf(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// OnEpoch logs the first epoch of a layer and every Every-th epoch after it.
func (o *LogObserver) OnEpoch(e feedforward.Event) {
	if e.Epoch == 0 {
		o.start = time.Now()
	}
	every := o.Every
	if every <= 0 {
		every = 50
	}
	if e.Epoch == 0 || (e.Epoch+1)%every == 0 {
		o.printf("run=%s layer=%d epoch=%d loss=%.4f", e.Run, e.Layer, e.Epoch, e.Loss)
	}
}

// OnLayerDone logs the final loss of a layer, its spike rate and how long it trained.
func (o *LogObserver) OnLayerDone(d feedforward.LayerDone) {
	var last float64
	if len(d.Losses) > 0 {
		last = d.Losses[len(d.Losses)-1]
	}
	elapsed := time.Since(o.start)
	o.printf("layer=%d epochs=%d final_loss=%.4f spike_rate=%.3f elapsed=%s epochs_per_sec=%.1f",
		d.Layer, len(d.Losses), last, d.SpikeRate, elapsed.Round(time.Millisecond), float64(len(d.Losses))/elapsed.Seconds())
}

var _ feedforward.Observer = (*LogObserver)(nil)
