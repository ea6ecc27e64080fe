package core

// ComputeSampleFactor picks the power-of-two sample factor for decoding an
// image of the given intrinsic size into bounds.
//
// Images already within bounds get 1.  Otherwise the factor doubles while
// both scaled axes stay above half their bound (integer division
// throughout), so the loop stops as soon as either axis reaches bound/2 or
// less.  An image that is long on one axis only can therefore keep factor 1
// and exceed its bound on the other; callers that need a hard ceiling must
// scale the result themselves.
//
// Non-positive inputs are treated as 1 so the function is total.
func ComputeSampleFactor(intrinsic Dimensions, bounds Bounds) SampleFactor {
	w, h := atLeastOne(intrinsic.Width), atLeastOne(intrinsic.Height)
	maxW, maxH := atLeastOne(bounds.MaxWidth), atLeastOne(bounds.MaxHeight)

	factor := 1
	if (Dimensions{Width: w, Height: h}).Within(Bounds{MaxWidth: maxW, MaxHeight: maxH}) {
		return SampleFactor(factor)
	}

	halfW, halfH := maxW/2, maxH/2
	for h/factor > halfH && w/factor > halfW {
		factor *= 2
	}
	return SampleFactor(factor)
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
