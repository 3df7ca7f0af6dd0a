package db

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Operation is one write attempt. It must regenerate whatever key collided
// (object ID, stock number) before writing again.
type Operation func() error

// IsDuplicateKeyError classifies an error as a retryable key collision.
type IsDuplicateKeyError func(err error) bool

const DefaultMaxRetries = 3

// retryBackoff is the pause before retry n (1-based) is n*retryBackoff.
var retryBackoff = 50 * time.Millisecond

// Try runs op, retrying key collisions up to DefaultMaxRetries times.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsMongoDuplicateKeyError)
}

// WithRetries runs op once plus up to maxRetries more times while isDuplicateKey
// accepts the error. Other errors are returned immediately.
func WithRetries(op Operation, maxRetries int, isDuplicateKey IsDuplicateKeyError) error {
	err := op()
	for attempt := 1; err != nil && attempt <= maxRetries; attempt++ {
		if !isDuplicateKey(err) {
			return err
		}
		zap.L().Debug("Duplicate key, retrying", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(time.Duration(attempt) * retryBackoff)
		err = op()
	}
	return err
}

// IsMongoDuplicateKeyError reports whether err (possibly wrapped) is a server
// duplicate key error, from a single or a bulk write.
func IsMongoDuplicateKeyError(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}

// DuplicateKeyOn reports whether err is a duplicate key error raised by the named index.
func DuplicateKeyOn(err error, index string) bool {
	if !IsMongoDuplicateKeyError(err) {
		return false
	}
	marker := "index: " + index + " "
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if strings.Contains(e.Message, marker) {
				return true
			}
		}
		return false
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if strings.Contains(e.Message, marker) {
				return true
			}
		}
		return false
	}
	return strings.Contains(err.Error(), marker)
}
