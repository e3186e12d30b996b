package positionstore

import "errors"

var ErrNotFound = errors.New("position record not found")
