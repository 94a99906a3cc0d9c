package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// HeaderSize is the size of the canonical PCM WAV header; samples start right after it.
const HeaderSize = 44

var ErrMalformedAudio = errors.New("malformed audio")

var riffMagic = []byte("RIFF")

// Utterance is a decoded WAV buffer. Raw keeps the full WAV bytes because the
// transcription engine is fed the original container, not the bare samples.
type Utterance struct {
	Raw           []byte
	Samples       []int16
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Duration is derived from the sample count; zero when the header carries no rate.
func (u *Utterance) Duration() time.Duration {
	if u == nil || u.SampleRate <= 0 {
		return 0
	}
	ch := u.Channels
	if ch <= 0 {
		ch = 1
	}
	frames := len(u.Samples) / ch
	return time.Duration(frames) * time.Second / time.Duration(u.SampleRate)
}

// HasRIFF reports whether buf starts with the RIFF magic.
func HasRIFF(buf []byte) bool {
	return len(buf) >= 4 && bytes.Equal(buf[:4], riffMagic)
}

// ParseFrame reads the header fields at their fixed offsets and returns the PCM
// payload after byte 44 as little-endian int16 samples. It does not check the magic;
// Decode does. A trailing odd byte is dropped.
func ParseFrame(buf []byte) (*Utterance, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrMalformedAudio, HeaderSize, len(buf))
	}

	u := &Utterance{
		Raw:           buf,
		Channels:      int(binary.LittleEndian.Uint16(buf[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(buf[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(buf[34:36])),
	}

	pcm := buf[HeaderSize:]
	u.Samples = make([]int16, len(pcm)/2)
	for i := range u.Samples {
		u.Samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return u, nil
}

// Decode accepts either raw WAV bytes or base64 text of WAV bytes.
// Anything not starting with "RIFF" is base64-decoded first.
func Decode(buf []byte) (*Utterance, error) {
	data := buf
	if !HasRIFF(buf) {
		decoded, err := DecodeBase64(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: not WAV and not base64: %v", ErrMalformedAudio, err)
		}
		data = decoded
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrMalformedAudio, HeaderSize, len(data))
	}
	if !HasRIFF(data) {
		return nil, fmt.Errorf("%w: missing RIFF header", ErrMalformedAudio)
	}
	return ParseFrame(data)
}

// DecodeBase64 decodes padded or unpadded standard base64, tolerating a
// "data:<mime>;base64," prefix and surrounding whitespace.
func DecodeBase64(b []byte) ([]byte, error) {
	s := bytes.TrimSpace(b)
	if bytes.HasPrefix(s, []byte("data:")) {
		if i := bytes.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	out := make([]byte, base64.StdEncoding.DecodedLen(len(s)))
	n, err := base64.StdEncoding.Decode(out, s)
	if err == nil {
		return out[:n], nil
	}
	n, rawErr := base64.RawStdEncoding.Decode(out, s)
	if rawErr == nil {
		return out[:n], nil
	}
	return nil, err
}
