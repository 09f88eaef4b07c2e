// Package forecast estimates future storage and retrieval timestamps from an
// item's event history.
//
// A Registry maps algorithm identifiers to strategies. Transaction strategies
// (poisson_process, exponential_smoothing, holt_winters) work on a sorted
// Timestamps sequence produced by the Retriever; the demand strategy
// (moving_average) currently returns the provider's demand history unchanged.
//
// Everything in this package is synchronous and keeps no state between calls.
// Randomness comes from an injected Sampler and the horizon anchor is an
// explicit parameter, so a seeded sampler and a fixed anchor make every
// forecast reproducible.
package forecast
