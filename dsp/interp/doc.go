// Package interp provides the fractional-read kernels used by delay lines
// whose length is modulated while audio is running.
//
//   - [Linear2]:  2-point linear interpolation
//   - [Hermite4]: 4-point cubic Hermite (default)
//
// [Mode] selects the kernel at construction time of a [delay.Line].
package interp
