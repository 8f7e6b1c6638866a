package framing

// Borrowed is a non-owning view over a caller-supplied byte range. A
// function that accepts a Borrowed promises not to retain it past the
// call — if it needs the bytes afterward, it copies them into an Owned.
// Go slices already carry their own bounds, so nothing here is enforced
// by the compiler; the naming convention is what keeps callers honest,
// e.g. a put's CRC computation must run over the caller's buffer before
// it is reused.
type Borrowed []byte

// Owned is a byte range the holder may keep, mutate, or hand off
// indefinitely: the holder has the only reference to that backing
// array. The store's get and read return plain []byte buffers that are
// freshly allocated in this same sense.
type Owned []byte

// Len reports the length as an explicit uint32, matching the on-disk
// width of key_length/value_length/payload_length fields. Callers
// should check a length fits within the store's configured key/value
// size limits before calling this.
func (b Borrowed) Len() uint32 { return uint32(len(b)) }
func (o Owned) Len() uint32    { return uint32(len(o)) }

// CloneOwned copies a Borrowed span into a freshly allocated Owned one.
func CloneOwned(b Borrowed) Owned {
	out := make(Owned, len(b))
	copy(out, b)
	return out
}
