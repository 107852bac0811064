package utils

import "errors"

// ErrorRecordNotFound is returned by model lookups when the row does not
// exist or belongs to another organization. Handlers map it to 404.
var ErrorRecordNotFound = errors.New("record not found")
