package models

import "errors"

// Application-wide standard errors
var (
	ErrNotFound = errors.New("resource not found")

	// Ошибки запроса
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidInput     = errors.New("invalid input data")

	// Ошибки генерации
	ErrMalformedResponse = errors.New("malformed response from text generation API")
)
