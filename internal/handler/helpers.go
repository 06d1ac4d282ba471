package handler

import (
	"encoding/json"
	"strconv"
)

// decodeRubric parses the stored rubric JSON for the response body.
// A malformed rubric reads as absent rather than failing the request.
func decodeRubric(rubric *string) interface{} {
	if rubric == nil || *rubric == "" {
		return nil
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(*rubric), &decoded); err != nil {
		return nil
	}
	return decoded
}

// queryInt parses an optional integer query parameter, nil when absent
// or malformed.
func queryInt(value string) *int {
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &n
}
