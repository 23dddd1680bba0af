package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptStartKey returns the cache key for a student's attempt start timestamp.
func (r *CacheKeyStruct) AttemptStartKey(testID string, studentID int64) string {
	return fmt.Sprintf("student:%d:test:%s:attempt_start", studentID, testID)
}

// TestPayloadKey returns the cache key for a test's student-facing payload.
func (r *CacheKeyStruct) TestPayloadKey(testID string) string {
	return fmt.Sprintf("test:%s:payload", testID)
}

// TestDurationKey returns the cache key for a test's duration in minutes.
func (r *CacheKeyStruct) TestDurationKey(testID string) string {
	return fmt.Sprintf("test:%s:duration", testID)
}

var CacheKey = NewCacheKeyStruct()
