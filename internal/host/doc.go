// Package host drives a quantum.Processor from outside the library: offline
// over sample slices and WAV files, or live from a duplex audio device.
package host
