package hpobj

import "fmt"

const (
	// dirHeaderSize covers prolog, attached library, offset and the
	// terminating zero offset
	dirHeaderSize = 18
	// dirEmptySize is a directory with no entries
	dirEmptySize = 13
	// offsetSize is the link field after each directory entry
	offsetSize = 5
)

// readProlog returns the prolog at the start of n
func readProlog(n Nibbles) (Prolog, error) {
	v, err := n.Field(0, prologSize)
	if err != nil {
		return 0, err
	}
	return Prolog(v), nil
}

// Size returns the number of nibbles the object at the start of n occupies.
// Nested objects (the value of a tagged object or a directory entry) are
// decoded by calling Size on the remaining nibbles.
func Size(n Nibbles) (int, error) {
	prolog, err := readProlog(n)
	if err != nil {
		return 0, err
	}
	strategy, ok := strategies[prolog]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnrecognizedPrologue, prolog)
	}

	var size int
	switch strategy {
	case Fixed:
		size = fixedSizes[prolog]
	case SizeNext:
		size, err = sizeNext(n)
	case ASCICNext:
		size, err = asciCNext(n)
	case FindEndMarker:
		size, err = findEndMarker(n)
	case DirNext:
		size, err = dirNext(n)
	}
	if err != nil {
		return 0, fmt.Errorf("%v object: %w", prolog, err)
	}
	if size > len(n) {
		return 0, fmt.Errorf("%w: %v object needs %d nibbles, %d available",
			ErrTruncatedObject, prolog, size, len(n))
	}
	return size, nil
}

// sizeNext reads the length field, which counts itself and the body
func sizeNext(n Nibbles) (int, error) {
	length, err := n.Field(prologSize, 5)
	if err != nil {
		return 0, err
	}
	return int(length) + prologSize, nil
}

// asciCNext sizes a counted name followed by a nested object
func asciCNext(n Nibbles) (int, error) {
	count, err := n.Field(prologSize, 2)
	if err != nil {
		return 0, err
	}
	head := prologSize + 2 + 2*int(count)
	if head > len(n) {
		return 0, fmt.Errorf("%w: name of %d characters", ErrTruncatedObject, count)
	}
	inner, err := Size(n[head:])
	if err != nil {
		return 0, err
	}
	return head + inner, nil
}

// asciXSize sizes a directory entry name: count, characters, count again
func asciXSize(n Nibbles) (int, error) {
	count, err := n.Field(0, 2)
	if err != nil {
		return 0, err
	}
	size := 2 + 2*int(count) + 2
	if size > len(n) {
		return 0, fmt.Errorf("%w: entry name of %d characters", ErrTruncatedObject, count)
	}
	return size, nil
}

// findEndMarker scans for the closing SEMI. Only a SEMI ending on the last
// nibble, or on the one before it when the file carries a pad nibble,
// closes the outermost object. A nested object does not end its slice, so
// when no SEMI sits there the first one found is used.
func findEndMarker(n Nibbles) (int, error) {
	var acc uint32
	first := -1
	for pos := prologSize; pos < len(n); pos++ {
		acc = (acc<<4 | uint32(n[pos])) & 0xFFFFF
		if acc != semiScanned {
			continue
		}
		if pos >= len(n)-2 {
			return pos + 1, nil
		}
		if first < 0 {
			first = pos
		}
	}
	if first >= 0 {
		return first + 1, nil
	}
	return 0, fmt.Errorf("%w: no closing SEMI", ErrTruncatedObject)
}

// dirNext walks the directory entries. Each is a name, the stored object
// and an offset to the previous entry; the last entry has no offset.
func dirNext(n Nibbles) (int, error) {
	if len(n) < dirEmptySize {
		return 0, fmt.Errorf("%w: directory header", ErrTruncatedObject)
	}
	index := dirHeaderSize
	for len(n)-index >= dirHeaderSize {
		name, err := asciXSize(n[index:])
		if err != nil {
			return 0, err
		}
		value, err := Size(n[index+name:])
		if err != nil {
			return 0, fmt.Errorf("entry at nibble %d: %w", index, err)
		}
		index += name + value + offsetSize
	}
	return index - offsetSize, nil
}
