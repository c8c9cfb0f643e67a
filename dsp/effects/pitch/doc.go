// Package pitch provides block-based fundamental frequency estimation.
//
// Detector implements the McLeod pitch method: a power gate, the
// normalized square difference function computed from an FFT
// autocorrelation, key-maximum peak picking with a clarity gate and
// parabolic refinement of the chosen lag.
package pitch
