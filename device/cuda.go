//go:build cuda

package device

import "gorgonia.org/cu"

func probeCUDA() ([]GPU, error) {
	count, err := cu.NumDevices()
	if err != nil {
		return nil, err
	}
	gpus := make([]GPU, 0, count)
	for i := 0; i < count; i++ {
		dev := cu.Device(i)
		name, err := dev.Name()
		if err != nil {
			return gpus, err
		}
		memory, err := dev.TotalMem()
		if err != nil {
			return gpus, err
		}
		gpus = append(gpus, GPU{Ordinal: i, Name: name, Memory: memory})
	}
	return gpus, nil
}
