// Copyright 2025 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package compress implements the wire compression translator: a
// bidirectional deflate (mandatory) and zstd (optional) codec with a
// fixed trailer and side-dictionary canary markers signalling whether a
// payload was compressed at all.
package compress

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Algorithm selects the compression codec.
type Algorithm int

const (
	Deflate Algorithm = iota
	Zstd
)

// Canonical deflate levels, matching the C source's fixed option set.
const (
	LevelNone    = 0
	LevelFastest = 1
	LevelBest    = 9
	LevelDefault = -1
)

// Canary keys name the side-dictionary entries that signal "compressed
// content follows" for each algorithm. Their absence means pass-through.
const (
	DeflateCanaryKey = "trusted.cdc.deflate-canary-val"
	ZstdCanaryKey    = "trusted.cdc.zstd-canary-val"
)

var canaryValue = []byte{1}

func canaryKey(algo Algorithm) string {
	if algo == Zstd {
		return ZstdCanaryKey
	}
	return DeflateCanaryKey
}

// SideDict is the side-channel marker set carried alongside a payload,
// the Go stand-in for the dict_t entries the C source stores the canary
// in. It is not the payload's framing (that's the trailer below) — it is
// how a peer decides whether to even attempt decompression.
type SideDict map[string][]byte

// trailerSize is the 8-byte trailer: 4-byte little-endian CRC-32 of the
// uncompressed bytes, then a 4-byte little-endian uncompressed length.
const trailerSize = 8

func appendTrailer(compressed []byte, uncompressed []byte) []byte {
	var trailer [trailerSize]byte
	binary.LittleEndian.PutUint32(trailer[0:4], crc32.ChecksumIEEE(uncompressed))
	binary.LittleEndian.PutUint32(trailer[4:8], uint32(len(uncompressed)))
	return append(compressed, trailer[:]...)
}

// splitTrailer separates a framed payload into its compressed body and
// parsed trailer.
func splitTrailer(framed []byte) (body []byte, crc uint32, length uint32, err error) {
	if len(framed) < trailerSize {
		return nil, 0, 0, fmt.Errorf("compress: payload too short for trailer (%d bytes)", len(framed))
	}
	split := len(framed) - trailerSize
	trailer := framed[split:]
	crc = binary.LittleEndian.Uint32(trailer[0:4])
	length = binary.LittleEndian.Uint32(trailer[4:8])
	return framed[:split], crc, length, nil
}

// Compress concatenates vectors (a scatter-gather input, processed in
// order) and compresses the result with algo at level, unless the total
// size is below minSize, in which case it returns the concatenated bytes
// unchanged with no canary set (pass-through). On success it returns the
// framed (trailer-appended) compressed payload and the side-dict entry to
// attach to the outgoing message.
func Compress(algo Algorithm, level int, vectors [][]byte, minSize int) (framed []byte, dict SideDict, err error) {
	total := 0
	for _, v := range vectors {
		total += len(v)
	}
	uncompressed := make([]byte, 0, total)
	for _, v := range vectors {
		uncompressed = append(uncompressed, v...)
	}

	if total < minSize {
		return uncompressed, SideDict{}, nil
	}

	var buf bytes.Buffer
	switch algo {
	case Deflate:
		if err := deflateCompress(&buf, uncompressed, level); err != nil {
			return nil, nil, err
		}
	case Zstd:
		if err := zstdCompress(&buf, uncompressed, level); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("compress: unknown algorithm %d", algo)
	}

	framed = appendTrailer(buf.Bytes(), uncompressed)
	dict = SideDict{canaryKey(algo): canaryValue}
	return framed, dict, nil
}

// Decompress reverses Compress. It supports only single-vector input —
// multi-vector decompression is a documented gap inherited from the
// original implementation, not an oversight here. If dict carries no
// canary for algo, framed is returned unchanged (pass-through).
func Decompress(algo Algorithm, framed []byte, dict SideDict) ([]byte, error) {
	if _, ok := dict[canaryKey(algo)]; !ok {
		return framed, nil
	}

	body, wantCRC, wantLen, err := splitTrailer(framed)
	if err != nil {
		return nil, err
	}

	var out []byte
	switch algo {
	case Deflate:
		out, err = deflateDecompress(body)
	case Zstd:
		out, err = zstdDecompress(body)
	default:
		return nil, fmt.Errorf("compress: unknown algorithm %d", algo)
	}
	if err != nil {
		return nil, err
	}

	if uint32(len(out)) != wantLen {
		return nil, fmt.Errorf("compress: trailer length mismatch: got %d want %d", len(out), wantLen)
	}
	if crc32.ChecksumIEEE(out) != wantCRC {
		return nil, fmt.Errorf("compress: trailer CRC-32 mismatch")
	}
	return out, nil
}

// DecompressMultiVector exists only to document the gap: multi-vector
// decompression is unsupported, matching the original implementation's
// behavior exactly rather than silently handling vectors[0] and dropping
// the rest.
func DecompressMultiVector(algo Algorithm, framed [][]byte, dict SideDict) ([]byte, error) {
	if len(framed) != 1 {
		return nil, fmt.Errorf("compress: multi-vector decompression is unsupported (%d vectors)", len(framed))
	}
	return Decompress(algo, framed[0], dict)
}
