package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("mongodb connection could not be established")
	ErrHealthcheckFailed      = errors.New("mongodb ping failed")
)
