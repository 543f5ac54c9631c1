package cacheinfra

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("cacheinfra: empty connection URL")
	ErrFailedToParseURL   = errors.New("cacheinfra: failed to parse connection URL")
	ErrConnectionFailed   = errors.New("cacheinfra: failed to establish connection")
	ErrStoreClosed        = errors.New("cacheinfra: store is closed")
)
