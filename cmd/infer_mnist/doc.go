// Package main provides a demo program for running inference with a trained MNIST digit
// classifier. Each image is scored once per candidate label and the label with the
// largest summed goodness wins.
package main
