package models

import "errors"

// ErrNotFound indicates the requested record does not exist in the store.
var ErrNotFound = errors.New("record not found")
