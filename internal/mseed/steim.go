package mseed

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const steimFrameLen = 64

// decodeSteim expands Steim1 or Steim2 compressed payloads. Both schemes pack
// first differences into 64-byte frames of 16 words; word 0 holds 2-bit
// nibble codes for the remaining words, and frame 0 reserves words 1 and 2
// for the forward (X0) and reverse (Xn) integration constants.
func decodeSteim(payload []byte, numSamples int, order binary.ByteOrder, version int) ([]float64, error) {
	if len(payload) < steimFrameLen {
		return nil, errors.New("mseed: Steim payload shorter than one frame")
	}

	diffs := make([]int32, 0, numSamples)
	var x0, xn int32
	haveConstants := false

	numFrames := len(payload) / steimFrameLen
	for f := 0; f < numFrames && len(diffs) < numSamples; f++ {
		frame := payload[f*steimFrameLen : (f+1)*steimFrameLen]
		nibbles := order.Uint32(frame[0:4])

		for w := 1; w < 16; w++ {
			if f == 0 && w == 1 {
				x0 = int32(order.Uint32(frame[4:8]))
				continue
			}
			if f == 0 && w == 2 {
				xn = int32(order.Uint32(frame[8:12]))
				haveConstants = true
				continue
			}

			nib := (nibbles >> uint(30-2*w)) & 0x3
			word := order.Uint32(frame[4*w : 4*w+4])

			var err error
			if version == 1 {
				diffs, err = appendSteim1Word(diffs, nib, word)
			} else {
				diffs, err = appendSteim2Word(diffs, nib, word)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	if !haveConstants {
		return nil, errors.New("mseed: Steim frame 0 missing integration constants")
	}
	if len(diffs) < numSamples {
		return nil, fmt.Errorf("mseed: Steim payload yielded %d of %d samples", len(diffs), numSamples)
	}
	diffs = diffs[:numSamples]

	out := make([]float64, numSamples)
	cur := x0
	out[0] = float64(cur)
	for i := 1; i < numSamples; i++ {
		cur += diffs[i]
		out[i] = float64(cur)
	}

	if int32(out[numSamples-1]) != xn {
		return nil, fmt.Errorf("mseed: Steim reverse integration mismatch: got %d, want %d",
			int32(out[numSamples-1]), xn)
	}
	return out, nil
}

func appendSteim1Word(diffs []int32, nib uint32, word uint32) ([]int32, error) {
	switch nib {
	case 0: // non-data word
		return diffs, nil
	case 1: // four 8-bit differences
		for s := 0; s < 4; s++ {
			diffs = append(diffs, int32(int8(word>>uint(24-8*s))))
		}
	case 2: // two 16-bit differences
		for s := 0; s < 2; s++ {
			diffs = append(diffs, int32(int16(word>>uint(16-16*s))))
		}
	case 3: // one 32-bit difference
		diffs = append(diffs, int32(word))
	}
	return diffs, nil
}

func appendSteim2Word(diffs []int32, nib uint32, word uint32) ([]int32, error) {
	switch nib {
	case 0:
		return diffs, nil
	case 1: // four 8-bit differences, same as Steim1
		for s := 0; s < 4; s++ {
			diffs = append(diffs, int32(int8(word>>uint(24-8*s))))
		}
		return diffs, nil
	}

	dnib := word >> 30
	switch {
	case nib == 2 && dnib == 1: // one 30-bit difference
		diffs = append(diffs, signExtend(word&0x3FFFFFFF, 30))
	case nib == 2 && dnib == 2: // two 15-bit differences
		for s := 0; s < 2; s++ {
			diffs = append(diffs, signExtend((word>>uint(15-15*s))&0x7FFF, 15))
		}
	case nib == 2 && dnib == 3: // three 10-bit differences
		for s := 0; s < 3; s++ {
			diffs = append(diffs, signExtend((word>>uint(20-10*s))&0x3FF, 10))
		}
	case nib == 3 && dnib == 0: // five 6-bit differences
		for s := 0; s < 5; s++ {
			diffs = append(diffs, signExtend((word>>uint(24-6*s))&0x3F, 6))
		}
	case nib == 3 && dnib == 1: // six 5-bit differences
		for s := 0; s < 6; s++ {
			diffs = append(diffs, signExtend((word>>uint(25-5*s))&0x1F, 5))
		}
	case nib == 3 && dnib == 2: // seven 4-bit differences
		for s := 0; s < 7; s++ {
			diffs = append(diffs, signExtend((word>>uint(24-4*s))&0xF, 4))
		}
	default:
		return nil, fmt.Errorf("mseed: invalid Steim2 nibble/dnib combination %d/%d", nib, dnib)
	}
	return diffs, nil
}

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
