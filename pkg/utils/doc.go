// Package utils provides vector math, bounded-concurrency, and panic
// recovery primitives shared across the predmap pipeline.
package utils
