package secure

// MaxFieldLen is the maximum number of bytes a credential field may hold.
// Matches the 255-character limit on local usernames.
const MaxFieldLen = 255

// Buffer is a fixed-capacity text field for credential input. The backing
// array never grows, so wiping it wipes every byte the field ever held.
type Buffer struct {
	data [MaxFieldLen]byte
	n    int
}

func (b *Buffer) Len() int { return b.n }

func (b *Buffer) Empty() bool { return b.n == 0 }

// Append adds one byte, reporting false when the buffer is full.
func (b *Buffer) Append(c byte) bool {
	if b.n >= MaxFieldLen {
		return false
	}
	b.data[b.n] = c
	b.n++
	return true
}

// DeleteLast removes the last byte and zeroes it in place.
func (b *Buffer) DeleteLast() {
	if b.n == 0 {
		return
	}
	b.n--
	b.data[b.n] = 0
}

// Set replaces the contents, truncating at capacity.
func (b *Buffer) Set(s string) {
	b.Wipe()
	for i := 0; i < len(s) && i < MaxFieldLen; i++ {
		b.data[i] = s[i]
	}
	b.n = min(len(s), MaxFieldLen)
}

// String copies the contents out. Callers holding secrets should prefer
// Bytes to keep the number of copies down.
func (b *Buffer) String() string {
	return string(b.data[:b.n])
}

// Bytes returns the live backing slice; it is invalidated by Wipe.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Wipe zeroes the whole backing array, not just the used prefix.
func (b *Buffer) Wipe() {
	Zero(b.data[:])
	b.n = 0
}
