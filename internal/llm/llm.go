// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.


// Package llm holds the media payloads attached to provider requests.
package llm

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Blob contains media as raw bytes.
// The type of source data follows the IANA standard MIME type.
type Blob struct {
	MIMEType string
	Data     []byte
}

// NewBlob creates a [Blob], detecting the MIME type from the
// content when mimeType is empty. Parameters such as charset are
// dropped.
func NewBlob(mimeType string, data []byte) *Blob {
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return &Blob{
		MIMEType: mimeType,
		Data:     data,
	}
}

// Base64 returns the standard base64 encoding of the blob data.
func (b Blob) Base64() string {
	return base64.StdEncoding.EncodeToString(b.Data)
}

// DataURL returns the blob encoded as an RFC 2397 data URL.
func (b Blob) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", b.MIMEType, b.Base64())
}

// IsImage reports whether the blob holds an image.
func (b Blob) IsImage() bool {
	return strings.HasPrefix(b.MIMEType, "image/")
}
