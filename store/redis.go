package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const (
	channelPrefix = "duplicat:changes:"
	keyPrefix     = "duplicat:"

	// Session documents live two path segments deep ("games/<id>"); each
	// document is stored as one redis value so a multi-key update within a
	// session is a single optimistic transaction.
	docDepth = 2
)

// RedisStore implements Store on redis: one JSON document per session,
// MULTI/EXEC writes, pub/sub change notifications. A failed transaction is
// returned to the caller as-is; the core never retries it.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis and pings it, retrying briefly so a
// restarting redis next to us doesn't kill startup. Only the connection is
// retried, never a transaction.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	err = retry.Do(
		func() error { return client.Ping(ctx).Err() },
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", opts.Addr).Msg("connected to redis store")
	return &RedisStore{client: client}, nil
}

// docKey returns the redis key of the document a path belongs to, plus the
// remaining segments inside that document.
func docKey(path string) (string, []string) {
	segments := splitPath(path)
	if len(segments) <= docDepth {
		return keyPrefix + strings.Join(segments, "/"), nil
	}
	return keyPrefix + strings.Join(segments[:docDepth], "/"), segments[docDepth:]
}

func (s *RedisStore) readDoc(ctx context.Context, key string) (map[string]interface{}, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	doc := map[string]interface{}{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *RedisStore) Read(ctx context.Context, path string) (json.RawMessage, error) {
	key, rest := docKey(path)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return raw, nil
	}
	doc := map[string]interface{}{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	node, ok := getAtPath(doc, rest)
	if !ok {
		return nil, ErrNotFound
	}
	return json.Marshal(node)
}

func (s *RedisStore) AtomicUpdate(ctx context.Context, updates map[string]interface{}) error {
	// Group the writes by document; the whole batch commits in one
	// optimistic transaction over every touched document.
	byDoc := map[string]map[string]interface{}{}
	keys := []string{}
	for path, value := range updates {
		tree, err := toTree(value)
		if err != nil {
			return err
		}
		key, rest := docKey(path)
		if byDoc[key] == nil {
			byDoc[key] = map[string]interface{}{}
			keys = append(keys, key)
		}
		byDoc[key][strings.Join(rest, "/")] = tree
	}

	published := map[string][]byte{}
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		docs := map[string][]byte{}
		for key, patches := range byDoc {
			doc, err := s.readDoc(ctx, key)
			if err != nil {
				return err
			}
			for rel, tree := range patches {
				segments := splitPath(rel)
				if len(segments) == 0 {
					m, ok := tree.(map[string]interface{})
					if !ok {
						m = map[string]interface{}{}
					}
					doc = m
					continue
				}
				setAtPath(doc, segments, tree)
			}
			raw, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			docs[key] = raw
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for key, raw := range docs {
				pipe.Set(ctx, key, raw, 0)
			}
			return nil
		})
		if err == nil {
			published = docs
		}
		return err
	}, keys...)
	if err != nil {
		return err
	}

	for key, raw := range published {
		if perr := s.client.Publish(ctx, channelPrefix+key, raw).Err(); perr != nil {
			log.Warn().Err(perr).Str("key", key).Msg("change notification publish failed")
		}
	}
	return nil
}

func (s *RedisStore) CreateUnique(ctx context.Context, parentPath string, value interface{}) (string, error) {
	key := PushID()
	err := s.AtomicUpdate(ctx, map[string]interface{}{
		parentPath + "/" + key: value,
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, path string, fn ChangeFunc) (func(), error) {
	key, rest := docKey(path)
	ps := s.client.Subscribe(ctx, channelPrefix+key)
	go func() {
		for msg := range ps.Channel() {
			data := json.RawMessage(msg.Payload)
			if len(rest) > 0 {
				doc := map[string]interface{}{}
				if err := json.Unmarshal(data, &doc); err != nil {
					continue
				}
				node, ok := getAtPath(doc, rest)
				if !ok {
					continue
				}
				raw, err := json.Marshal(node)
				if err != nil {
					continue
				}
				data = raw
			}
			fn(path, data)
		}
	}()
	return func() { _ = ps.Close() }, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
