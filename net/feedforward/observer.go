package feedforward

import "github.com/google/uuid"

// Event is one completed training epoch.
type Event struct {
	Run   uuid.UUID
	Layer int
	Epoch int
	Loss  float64
}

// LayerDone summarises a layer that finished training.
type LayerDone struct {
	Run       uuid.UUID
	Layer     int
	Losses    []float64
	SpikeRate float64 // fraction of units firing on the positive batch
}

// Observer receives training progress. Calls happen on the training
// goroutine, in order.
type Observer interface {
	OnEpoch(e Event)
	OnLayerDone(d LayerDone)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) OnEpoch(Event)         {}
func (NopObserver) OnLayerDone(LayerDone) {}
