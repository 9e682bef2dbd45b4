// Package mnist loads the MNIST handwritten digit dataset from IDX files
package mnist

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/neurlang/ffsnn/datasets"
	"github.com/neurlang/ffsnn/errs"
)

// DefaultDirectory is searched when Load is given no directories.
const DefaultDirectory = `/tmp/mnist/`

const inferSetImg = "t10k-images-idx3-ubyte.gz"
const inferSetVal = "t10k-labels-idx1-ubyte.gz"
const trainSetImg = "train-images-idx3-ubyte.gz"
const trainSetVal = "train-labels-idx1-ubyte.gz"
const inferDigImg = "8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6"
const inferDigVal = "f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6"
const trainDigImg = "440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609"
const trainDigVal = "3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c"

// ImgSize is the side of an MNIST image.
const ImgSize = 28

// Classes is the number of digit classes.
const Classes = 10

const (
	imagesMagic = 2051
	labelsMagic = 2049
)

// Load reads the train and test splits from the first directory holding all
// four files. Pixels are scaled to [0, 1] and each image is flattened.
func Load(dirs ...string) (train, test datasets.Set, err error) {
	if len(dirs) == 0 {
		dirs = []string{DefaultDirectory}
	}
	err = fmt.Errorf("mnist: no directories searched")
	for _, dir := range dirs {
		train, test, err = loadDir(dir)
		if err == nil {
			return train, test, nil
		}
	}
	return datasets.Set{}, datasets.Set{}, err
}

func loadDir(dir string) (train, test datasets.Set, err error) {
	files := map[string]string{
		inferSetImg: inferDigImg,
		inferSetVal: inferDigVal,
		trainSetImg: trainDigImg,
		trainSetVal: trainDigVal,
	}
	raw := make(map[string][]byte, len(files))
	for name, digest := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return train, test, fmt.Errorf("mnist: %w", err)
		}
		if got := fmt.Sprintf("%x", sha256.Sum256(data)); got != digest {
			return train, test, fmt.Errorf("mnist: file hash for %s is incorrect", name)
		}
		raw[name] = data
	}
	train, err = Decode(bytes.NewReader(raw[trainSetImg]), bytes.NewReader(raw[trainSetVal]))
	if err != nil {
		return train, test, fmt.Errorf("mnist: train split: %w", err)
	}
	test, err = Decode(bytes.NewReader(raw[inferSetImg]), bytes.NewReader(raw[inferSetVal]))
	if err != nil {
		return train, test, fmt.Errorf("mnist: test split: %w", err)
	}
	return train, test, nil
}

// Decode parses a gzip-compressed IDX image file and its label file.
func Decode(images, labels io.Reader) (datasets.Set, error) {
	imgs, err := readImages(images)
	if err != nil {
		return datasets.Set{}, err
	}
	lbls, err := readLabels(labels)
	if err != nil {
		return datasets.Set{}, err
	}
	if len(imgs) != len(lbls) {
		return datasets.Set{}, errs.Shape("mnist: %d images but %d labels", len(imgs), len(lbls))
	}
	return datasets.Set{Images: imgs, Labels: lbls}, nil
}

func ungzip(r io.Reader) ([]byte, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gzipReader.Close()
	return io.ReadAll(gzipReader)
}

func readImages(r io.Reader) ([][]float64, error) {
	data, err := ungzip(r)
	if err != nil {
		return nil, fmt.Errorf("images: %w", err)
	}
	if len(data) < 16 {
		return nil, errs.Shape("images: short header")
	}
	magic := binary.BigEndian.Uint32(data[0:])
	count := int(binary.BigEndian.Uint32(data[4:]))
	rows := int(binary.BigEndian.Uint32(data[8:]))
	cols := int(binary.BigEndian.Uint32(data[12:]))
	if magic != imagesMagic {
		return nil, fmt.Errorf("images: bad magic %d", magic)
	}
	size := rows * cols
	data = data[16:]
	if len(data) != count*size {
		return nil, errs.Shape("images: %d bytes for %d images of %dx%d", len(data), count, rows, cols)
	}
	set := make([][]float64, count)
	for i := range set {
		img := make([]float64, size)
		for j, px := range data[i*size : (i+1)*size] {
			img[j] = float64(px) / 255
		}
		datasets.Standardize(img)
		set[i] = img
	}
	return set, nil
}

func readLabels(r io.Reader) ([]int, error) {
	data, err := ungzip(r)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	if len(data) < 8 {
		return nil, errs.Shape("labels: short header")
	}
	magic := binary.BigEndian.Uint32(data[0:])
	count := int(binary.BigEndian.Uint32(data[4:]))
	if magic != labelsMagic {
		return nil, fmt.Errorf("labels: bad magic %d", magic)
	}
	data = data[8:]
	if len(data) != count {
		return nil, errs.Shape("labels: %d bytes for %d labels", len(data), count)
	}
	labels := make([]int, count)
	for i, v := range data {
		if int(v) >= Classes {
			return nil, errs.Shape("labels: label %d out of range at %d", v, i)
		}
		labels[i] = int(v)
	}
	return labels, nil
}
