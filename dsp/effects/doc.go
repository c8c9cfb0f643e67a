// Package effects provides the block effect kernels used by the effect
// engines.
//
// Delay is a feedback delay with wet mix and a smoothed delay time. It runs
// on float64 samples one at a time or in place over float32 blocks, where
// ProcessBlock also reports the RMS level before and after processing.
//
// Build with -tags fastmath to meter levels with an approximate square
// root.
//
// Subpackages:
//   - github.com/cwbudde/algo-blockstream/dsp/effects/pitch
package effects
