//go:build !cuda

package device

import "errors"

var errNoCUDA = errors.New("device: built without the cuda tag")

func probeCUDA() ([]GPU, error) {
	return nil, errNoCUDA
}
