package r2client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// LockStore is the subset of Client used by DistributedLock.
type LockStore interface {
	PutObjectIfNotExists(ctx context.Context, key string, body io.Reader, contentType string) (bool, string, error)
	PutObjectIfMatch(ctx context.Context, key string, body io.Reader, etag, contentType string) (bool, string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	DeleteObject(ctx context.Context, key string) error
}

// LockInfo is the JSON body of a lock object.
type LockInfo struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DistributedLock is a lease stored as an R2 object. Creation uses
// If-None-Match and takeover of an expired lease uses If-Match, so at most
// one owner wins each round.
type DistributedLock struct {
	store   LockStore
	key     string
	ttl     time.Duration
	ownerID string
	etag    string // ETag of the lease we hold
	now     func() time.Time
}

// NewDistributedLock creates a lock on key with the given lease duration.
func NewDistributedLock(store LockStore, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		store:   store,
		key:     key,
		ttl:     ttl,
		ownerID: uuid.NewString(),
		now:     time.Now,
	}
}

// OwnerID returns the unique identifier of this lock instance.
func (l *DistributedLock) OwnerID() string {
	return l.ownerID
}

// Acquire reports whether the lease was obtained. It returns (false, nil)
// while another owner holds an unexpired lease.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	body, err := l.leaseBody()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}

	created, etag, err := l.store.PutObjectIfNotExists(ctx, l.key, bytes.NewReader(body), "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	info, current, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		// Released between our two calls; let the caller retry.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if info != nil && l.now().Before(info.ExpiresAt) {
		return false, nil
	}

	stolen, etag, err := l.store.PutObjectIfMatch(ctx, l.key, bytes.NewReader(body), current, "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: take over: %w", err)
	}
	if stolen {
		l.etag = etag
	}
	return stolen, nil
}

// Renew extends the lease. It returns false if the lease was lost.
func (l *DistributedLock) Renew(ctx context.Context) (bool, error) {
	if l.etag == "" {
		return false, nil
	}
	body, err := l.leaseBody()
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}

	updated, etag, err := l.store.PutObjectIfMatch(ctx, l.key, bytes.NewReader(body), l.etag, "application/json")
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	if !updated {
		l.etag = ""
		return false, nil
	}
	l.etag = etag
	return true, nil
}

// Release deletes the lease if this instance still owns it.
func (l *DistributedLock) Release(ctx context.Context) error {
	info, _, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.etag = ""
	if info != nil && info.Owner != l.ownerID {
		return nil
	}
	return l.store.DeleteObject(ctx, l.key)
}

func (l *DistributedLock) leaseBody() ([]byte, error) {
	return json.Marshal(LockInfo{Owner: l.ownerID, ExpiresAt: l.now().Add(l.ttl)})
}

// read returns the current lease and its ETag. A nil info means the body
// was unreadable and the lease counts as expired.
func (l *DistributedLock) read(ctx context.Context) (*LockInfo, string, error) {
	body, etag, err := l.store.Download(ctx, l.key)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read lock: %w", err)
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, etag, nil
	}
	return &info, etag, nil
}
