package ptouch

// packBits compresses a raster line with TIFF PackBits run-length encoding,
// the scheme the printer expects once compression mode is enabled.
// Runs of three or more identical bytes become (-(n-1), value); literal
// spans become (n-1, bytes...).
func packBits(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}

	out := make([]byte, 0, len(src)+len(src)/128+1)
	i := 0
	for i < len(src) {
		// Measure the run starting at i.
		run := 1
		for i+run < len(src) && run < 128 && src[i+run] == src[i] {
			run++
		}

		if run >= 3 {
			out = append(out, byte(-(int8(run-1))), src[i])
			i += run
			continue
		}

		// Literal span: extend until a run of >=3 begins or we hit the cap.
		start := i
		i += run
		for i < len(src) && i-start < 128 {
			run = 1
			for i+run < len(src) && src[i+run] == src[i] {
				run++
			}
			if run >= 3 {
				break
			}
			i += run
		}
		if i-start > 128 {
			i = start + 128
		}
		out = append(out, byte(i-start-1))
		out = append(out, src[start:i]...)
	}
	return out
}
