// Package trainer provides high-level training orchestration for Forward-Forward networks.
// It prepares the positive and negative batches, trains the network layer by layer,
// evaluates it and stores the loss history and weights of the run.
package trainer
