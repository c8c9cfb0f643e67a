// Package buffer provides the two fixed-capacity sample stores that sit on
// either side of a block-based engine in a real-time callback:
//
//   - [Accumulator] collects host quanta until one analysis block is full.
//   - [DelayQueue] holds processed blocks, pre-seeded with silence, and
//     hands them back one quantum at a time.
//
// Neither type allocates after construction. Capacity violations are
// programming errors and panic instead of truncating. [Pool] recycles
// backing storage between sessions so that reconfiguration off the audio
// thread does not churn the GC.
package buffer
