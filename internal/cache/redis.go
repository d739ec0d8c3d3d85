package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// NewRedis opens a Redis client and checks the connection
func NewRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// PDFCache stores rendered reports keyed by form id and version, so any
// edit or transition naturally misses the old entry.
type PDFCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// NewPDFCache wraps client. A nil client yields a cache that never hits.
func NewPDFCache(client *redis.Client, ttl time.Duration, logger *logrus.Entry) *PDFCache {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PDFCache{
		client: client,
		ttl:    ttl,
		logger: logger.WithField("component", "pdf-cache"),
	}
}

func pdfKey(formID, version int) string {
	return fmt.Sprintf("pdf:form:%d:v%d", formID, version)
}

// Get returns the cached report, if any. Redis errors count as a miss.
func (c *PDFCache) Get(ctx context.Context, formID, version int) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, pdfKey(formID, version)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("form_id", formID).Warn("PDF cache read failed")
		return nil, false
	}
	return data, true
}

// Set stores a rendered report. Failures are logged and otherwise ignored.
func (c *PDFCache) Set(ctx context.Context, formID, version int, pdf []byte) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, pdfKey(formID, version), pdf, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("form_id", formID).Warn("PDF cache write failed")
	}
}

// Close closes the underlying client
func (c *PDFCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
