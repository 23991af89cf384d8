package beat

// rollingWindow is a fixed-size sliding sample window: pushing a chunk
// shifts out the same number of oldest samples. It is owned exclusively
// by the ingestion loop and is not safe for concurrent use.
type rollingWindow struct {
	buf []float64
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{buf: make([]float64, size)}
}

// push appends chunk, dropping the oldest len(chunk) samples. Chunks
// larger than the window keep only their newest tail.
func (w *rollingWindow) push(chunk []float64) {
	n := len(chunk)
	if n >= len(w.buf) {
		copy(w.buf, chunk[n-len(w.buf):])
		return
	}
	copy(w.buf, w.buf[n:])
	copy(w.buf[len(w.buf)-n:], chunk)
}

// samples exposes the window contents, oldest first. The returned slice
// aliases internal storage; callers must not retain it across pushes.
func (w *rollingWindow) samples() []float64 {
	return w.buf
}
