package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("invalid redis connection URL")
	ErrRedisNotReady                = errors.New("redis was not ready before the retry budget ran out")
	ErrEmptyConnectionURL           = errors.New("redis connection URL is empty")
	ErrHealthcheckFailed            = errors.New("redis ping failed")
)
