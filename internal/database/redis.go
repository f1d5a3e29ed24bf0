package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis key layout.
//
//	spider:page:<url>      hash {title, parent, html, content_hash}
//	spider:parent:<parent> sorted set of urls saved under parent
//	spider:pages           sorted set of every saved url
//	spider:seq             insertion counter used as sorted set score
const (
	redisPrefix    = "spider:"
	redisPageKey   = redisPrefix + "page:"
	redisParentKey = redisPrefix + "parent:"
	redisPagesKey  = redisPrefix + "pages"
	redisSeqKey    = redisPrefix + "seq"
)

// redisScanCount is the COUNT hint of SCAN while dropping keys.
const redisScanCount = 100

// redisMaxRetries bounds the attempts of a save whose page key changed
// between WATCH and EXEC.
const redisMaxRetries = 50

// redisStore is a Store backed by Redis. It has no tables: CreateTable is
// a no-op and DropTable deletes every spider key.
type redisStore struct {
	opts    Options
	options *redis.Options
	optErr  error

	mu     sync.Mutex
	client *redis.Client
}

// NewRedis creates a Store backed by a Redis server.
// creds.Name selects the logical database and must be a number.
func NewRedis(creds Credentials, opts Options) (Store, error) {
	options, err := redisOptions(creds)
	return &redisStore{
		opts:    opts.withDefaults(),
		options: options,
		optErr:  err,
	}, nil
}

func redisOptions(creds Credentials) (*redis.Options, error) {
	db := 0
	if creds.Name != "" {
		n, err := strconv.Atoi(creds.Name)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: redis database name must be a number (0-15), got %q", ErrDatabaseNotFound, creds.Name)
		}
		db = n
	}
	return &redis.Options{
		Addr:     creds.Host,
		Username: creds.Username,
		Password: creds.Password,
		DB:       db,
	}, nil
}

// Name returns "redis".
func (s *redisStore) Name() string {
	return Redis
}

// Connect creates the client and pings the server.
func (s *redisStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}
	if s.optErr != nil {
		return s.wrap("connect", s.optErr)
	}

	client := redis.NewClient(s.options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return s.wrap("connect", err)
	}

	s.client = client
	s.opts.Logger.Debug("connected to database", "backend", Redis)
	return nil
}

// Disconnect closes the client.
func (s *redisStore) Disconnect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return s.wrap("disconnect", err)
}

func (s *redisStore) conn() (*redis.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client, nil
}

// CreateTable is a no-op: Redis has no tables.
func (s *redisStore) CreateTable(_ context.Context, _ bool) error {
	_, err := s.conn()
	return err
}

// DropTable deletes every spider key.
func (s *redisStore) DropTable(ctx context.Context, _ bool) error {
	client, err := s.conn()
	if err != nil {
		return err
	}

	iter := client.Scan(ctx, 0, redisPrefix+"*", redisScanCount).Iterator()
	keys := make([]string, 0, redisScanCount)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == redisScanCount {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return s.wrap("drop table", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return s.wrap("drop table", err)
	}
	if len(keys) > 0 {
		if err := client.Del(ctx, keys...).Err(); err != nil {
			return s.wrap("drop table", err)
		}
	}
	return nil
}

// Save upserts rec. The page hash and both indexes are written in one
// MULTI/EXEC block guarded by WATCH on the page key. A save that loses the
// race for the key is retried against the new state.
func (s *redisStore) Save(ctx context.Context, rec Record) error {
	client, err := s.conn()
	if err != nil {
		return err
	}

	pageKey := redisPageKey + rec.URL
	txf := func(tx *redis.Tx) error {
		var oldParent string

		load := func() (storedBlob, error) {
			fields, err := tx.HGetAll(ctx, pageKey).Result()
			if err != nil {
				return storedBlob{}, s.wrap("save", err)
			}
			if len(fields) == 0 {
				return storedBlob{}, nil
			}
			oldParent = fields["parent"]
			return storedBlob{exists: true, locator: fields["html"], hash: fields["content_hash"]}, nil
		}

		write := func(swap blobSwap) error {
			seq, err := tx.Incr(ctx, redisSeqKey).Result()
			if err != nil {
				return s.wrap("save", err)
			}
			score := float64(seq)

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, pageKey, map[string]any{
					"title":        rec.Title,
					"parent":       rec.Parent,
					"html":         swap.locator,
					"content_hash": swap.hash,
				})
				if oldParent != "" && oldParent != rec.Parent {
					pipe.ZRem(ctx, redisParentKey+oldParent, rec.URL)
				}
				pipe.ZAddNX(ctx, redisParentKey+rec.Parent, redis.Z{Score: score, Member: rec.URL})
				pipe.ZAddNX(ctx, redisPagesKey, redis.Z{Score: score, Member: rec.URL})
				return nil
			})
			return s.wrap("save", err)
		}

		return saveWith(ctx, s.opts, rec, load, write)
	}

	for range redisMaxRetries {
		err = client.Watch(ctx, txf, pageKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return s.wrap("save", err)
	}
	s.opts.Logger.Debug("save url", "url", rec.URL)
	return nil
}

// Get returns the entries saved under parent in insertion order.
func (s *redisStore) Get(ctx context.Context, parent string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	client, err := s.conn()
	if err != nil {
		return nil, err
	}

	urls, err := client.ZRange(ctx, redisParentKey+parent, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, s.wrap("get", err)
	}

	cmds := make([]*redis.SliceCmd, len(urls))
	_, err = client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, u := range urls {
			cmds[i] = pipe.HMGet(ctx, redisPageKey+u, "title", "content_hash")
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap("get", err)
	}

	entries := make([]Entry, 0, len(urls))
	for i, u := range urls {
		vals := cmds[i].Val()
		entries = append(entries, Entry{URL: u, Title: stringAt(vals, 0), Hash: stringAt(vals, 1)})
	}
	return entries, nil
}

// Count returns the number of stored pages.
func (s *redisStore) Count(ctx context.Context) (int64, error) {
	client, err := s.conn()
	if err != nil {
		return 0, err
	}
	n, err := client.ZCard(ctx, redisPagesKey).Result()
	if err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

func (s *redisStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}
	return newError(Redis, op, classifyRedis(err), err)
}

func classifyRedis(err error) error {
	if errors.Is(err, ErrDatabaseNotFound) {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "WRONGPASS"),
		strings.Contains(msg, "NOAUTH"),
		strings.Contains(msg, "invalid password"),
		strings.Contains(msg, "invalid username-password"):
		return ErrCredentials
	case strings.Contains(msg, "DB index is out of range"):
		return ErrDatabaseNotFound
	default:
		return nil
	}
}

func stringAt(vals []any, i int) string {
	if i >= len(vals) {
		return ""
	}
	if s, ok := vals[i].(string); ok {
		return s
	}
	return ""
}
