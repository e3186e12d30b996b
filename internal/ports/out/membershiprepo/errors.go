package membershiprepo

import "errors"

var (
	ErrNotFound      = errors.New("membership not found")
	ErrAlreadyExists = errors.New("membership already exists")
)
