package trainer

import (
	"os"

	"github.com/pkg/errors"

	"github.com/neurlang/ffsnn/net/feedforward"
)

// Resume loads dstmodel into net when resume is set and the file exists.
// It reports whether weights were loaded.
func Resume(net *feedforward.FeedforwardNetwork, resume bool, dstmodel string) (bool, error) {
	if !resume || dstmodel == "" {
		return false, nil
	}
	if _, err := os.Stat(dstmodel); os.IsNotExist(err) {
		return false, nil
	}
	if err := net.ReadCompressedWeightsFromFile(dstmodel); err != nil {
		return false, errors.Wrapf(err, "resume from %s", dstmodel)
	}
	return true, nil
}
