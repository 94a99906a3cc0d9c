// Package audio holds the PCM/WAV primitives the relay works on: the energy gate that
// decides whether a buffer is worth transcribing, the WAV frame codec, and the
// fixed-overlap ring used to window streamed PCM.
package audio
