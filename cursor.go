package dao

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// EncodeOffsetCursor encodes an offset as a base64 "cursor:offset:NUMBER" string.
func EncodeOffsetCursor(offset int) *string {
	data := "cursor:offset:" + strconv.Itoa(offset)
	encoded := base64.URLEncoding.EncodeToString([]byte(data))
	return &encoded
}

// DecodeOffsetCursor extracts the offset from a cursor made by
// EncodeOffsetCursor. It returns 0 for nil or malformed cursors.
func DecodeOffsetCursor(input *string) int {
	if input == nil {
		return 0
	}

	decoded, err := base64.URLEncoding.DecodeString(*input)
	if err != nil {
		return 0
	}

	data := strings.Split(string(decoded), ":")
	if len(data) != 3 || data[0] != "cursor" || data[1] != "offset" {
		return 0
	}
	offset, err := strconv.ParseInt(data[2], 10, 32)
	if err != nil || offset < 0 {
		return 0
	}
	return int(offset)
}

// PageRequestAfter builds a request for size rows following the cursor.
// A nil cursor starts at the first row.
func PageRequestAfter(after *string, size int) *PageRequest {
	req := NewPageRequest(1, size)
	req.Start = DecodeOffsetCursor(after)
	if req.Start > 0 {
		req.Index = req.Start/req.Size + 1
	}
	return req
}
