package utils

import (
	"encoding/json"
)

// Marshal generic struct to JSON
func MarshalToJSON[T any](input T) (string, error) {
	jsonData, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// Unmarshal JSON to generic struct
func UnmarshalFromJSON[T any](data string) (*T, error) {
	var output T
	if err := json.Unmarshal([]byte(data), &output); err != nil {
		return nil, err
	}
	return &output, nil
}
