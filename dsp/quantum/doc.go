// Package quantum adapts a host audio callback of arbitrary, possibly
// varying size (the quantum) to an engine that only processes fixed blocks
// of B samples.
//
// Input quanta are collected in an accumulator; every time it holds B
// samples the engine runs once and its output block is appended to a delay
// queue. Each callback drains exactly one quantum from the head of that
// queue. The queue starts with a fixed amount of silence, so the output is
// the processed input delayed by a constant number of samples (Latency).
//
// Processor.OnControlEvent and Processor.OnAudioCallback may be used
// directly by hosts that never run them concurrently. Hosts with a separate
// real-time thread attach a Controller: control events are then prepared on
// the caller's goroutine and handed to the callback through lock-free rings,
// and the callback only swaps pointers.
package quantum
