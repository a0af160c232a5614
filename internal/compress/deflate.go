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

package compress

import (
	"bytes"
	"compress/flate"
	"io"
)

// deflateCompress writes the deflate-compressed form of data to w at the
// given level. The standard library's flate package does not expose
// independent window-size or memLevel knobs the way zlib's deflateInit2
// does; level is the only dial available, which is why this repo's option
// surface only accepts the canonical 0/1/9/-1 levels (see DESIGN.md's
// Open Question resolution).
func deflateCompress(w *bytes.Buffer, data []byte, level int) error {
	fw, err := flate.NewWriter(w, level)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	return fw.Close()
}

func deflateDecompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}
