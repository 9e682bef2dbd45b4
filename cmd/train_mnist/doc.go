// Package main provides a demo program for training a handwritten digit classifier on
// the MNIST dataset with the Forward-Forward algorithm. Every layer is trained on its
// own goodness objective, one after another, without backpropagation between layers.
package main
