package effects_test

import (
	"fmt"

	"github.com/cwbudde/algo-blockstream/dsp/effects"
)

func ExampleDelay_ProcessBlock() {
	d, err := effects.NewDelay(1000)
	if err != nil {
		fmt.Println(err)
		return
	}
	_ = d.SetTime(0.004)
	_ = d.SetFeedback(0.5)
	_ = d.SetMix(1)

	block := []float32{1, 0, 0, 0, 0, 0, 0, 0, 0}
	in, out := d.ProcessBlock(block)

	fmt.Println(block)
	fmt.Printf("in=%.3f out=%.3f\n", in, out)
	// Output:
	// [0 0 0 0 1 0 0 0 0.5]
	// in=0.333 out=0.373
}
