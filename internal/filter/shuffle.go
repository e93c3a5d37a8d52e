package filter

// Shuffle implements the byte shuffle filter. Encoding groups byte i of
// every element together, which helps the compressor that follows.
type Shuffle struct {
	elemSize int
}

// NewShuffle creates a new shuffle filter.
// Client data: [0] = element size in bytes
func NewShuffle(clientData []uint32) *Shuffle {
	elemSize := 1
	if len(clientData) > 0 && clientData[0] > 0 {
		elemSize = int(clientData[0])
	}
	return &Shuffle{elemSize: elemSize}
}

func (f *Shuffle) ID() uint16 {
	return FilterShuffle
}

// Encode turns [elem0][elem1]... into [all byte 0s][all byte 1s]...
// Trailing bytes that do not fill an element are kept as they are.
func (f *Shuffle) Encode(input []byte) ([]byte, error) {
	return f.transpose(input, true), nil
}

// Decode reverses Encode.
func (f *Shuffle) Decode(input []byte) ([]byte, error) {
	return f.transpose(input, false), nil
}

func (f *Shuffle) transpose(input []byte, encode bool) []byte {
	numElems := len(input) / f.elemSize
	if f.elemSize <= 1 || numElems <= 1 {
		return input
	}
	output := make([]byte, len(input))
	for i := 0; i < numElems; i++ {
		for j := 0; j < f.elemSize; j++ {
			elem, grouped := i*f.elemSize+j, j*numElems+i
			if encode {
				output[grouped] = input[elem]
			} else {
				output[elem] = input[grouped]
			}
		}
	}
	tail := numElems * f.elemSize
	copy(output[tail:], input[tail:])
	return output
}
