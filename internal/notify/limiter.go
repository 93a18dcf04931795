// Package notify rate-limits editor notifications about submitted
// revisions. The last notice per submission and editor is kept in Redis.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// noticeInterval is the minimum gap between two notices to the same
	// editor about the same submission.
	noticeInterval = 24 * time.Hour
	// noticeRetention bounds how long a notice timestamp is remembered.
	noticeRetention = 30 * 24 * time.Hour
)

// Limiter decides whether an editor may be notified again.
type Limiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewLimiter connects to Redis and verifies the connection.
func NewLimiter(redisURL string) (*Limiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewLimiterWithClient(client), nil
}

// NewLimiterWithClient creates a limiter from an existing Redis client.
func NewLimiterWithClient(client *redis.Client) *Limiter {
	return &Limiter{
		client: client,
		prefix: "notice:",
		now:    time.Now,
	}
}

func (l *Limiter) key(submissionID, editorID int64) string {
	return fmt.Sprintf("%s%d:%d", l.prefix, submissionID, editorID)
}

// AllowEditorNotice reports whether the editor may be notified now, and
// records the notice when it does. A notice is withheld while the previous
// one is under a day old, or while the editor has not logged in since the
// previous one was sent.
func (l *Limiter) AllowEditorNotice(ctx context.Context, submissionID, editorID int64, lastLogin *time.Time) (bool, error) {
	key := l.key(submissionID, editorID)
	now := l.now().UTC()

	raw, err := l.client.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("lookup last notice: %w", err)
	}
	if err == nil {
		lastNotice, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			return false, fmt.Errorf("parse last notice: %w", parseErr)
		}
		if now.Sub(lastNotice) < noticeInterval {
			return false, nil
		}
		if lastLogin == nil || lastLogin.Before(lastNotice) {
			// The previous notice is still unread.
			return false, nil
		}
	}

	if err := l.client.Set(ctx, key, now.Format(time.RFC3339), noticeRetention).Err(); err != nil {
		return false, fmt.Errorf("record notice: %w", err)
	}
	return true, nil
}

// Close closes the Redis connection.
func (l *Limiter) Close() error {
	return l.client.Close()
}

// Ping checks if Redis is reachable.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
