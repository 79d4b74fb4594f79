package envelope

// Zero overwrites b with zero bytes. Best effort: the runtime may have made
// copies the caller cannot reach; this clears the canonical slice. Safe on
// nil and empty slices, never panics.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
