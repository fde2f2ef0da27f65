package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const expiryIndexKey = "expiry.documents"

func documentKey(id string) string {
	return fmt.Sprintf("documents.%v", id)
}

// ConnectRedis opens a client and checks that the server answers.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	return rdb, nil
}

// redisDocument is the hash layout of documents.<id>. Times are unix
// milliseconds.
type redisDocument struct {
	ID        string `mapstructure:"id"`
	Code      string `mapstructure:"code"`
	Language  string `mapstructure:"language"`
	CreatedAt int64  `mapstructure:"created_at"`
	ExpiresAt int64  `mapstructure:"expires_at"`
}

func (r redisDocument) document() *Document {
	return &Document{
		ID:        r.ID,
		Code:      r.Code,
		Language:  r.Language,
		CreatedAt: time.UnixMilli(r.CreatedAt),
		ExpiresAt: time.UnixMilli(r.ExpiresAt),
	}
}

// updateScript sets code (and language when non-empty) only if the document
// still exists.
var updateScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "code", ARGV[1])
if ARGV[2] ~= "" then
	redis.call("HSET", KEYS[1], "language", ARGV[2])
end
return 1
`)

// RedisStore keeps each document in a hash and indexes expiry times in a
// sorted set so sweeping does not need to scan keys.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *RedisStore) Create(ctx context.Context, language string) (*Document, error) {
	now := s.now()
	doc := redisDocument{
		ID:        uuid.NewString(),
		Language:  language,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(s.ttl).UnixMilli(),
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, documentKey(doc.ID),
			"id", doc.ID,
			"code", doc.Code,
			"language", doc.Language,
			"created_at", doc.CreatedAt,
			"expires_at", doc.ExpiresAt,
		)
		pipe.ZAdd(ctx, expiryIndexKey, redis.Z{Score: float64(doc.ExpiresAt), Member: doc.ID})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error creating document: %w", err)
	}
	return doc.document(), nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Document, error) {
	res, err := s.rdb.HGetAll(ctx, documentKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("error getting document: %w", err)
	}
	if len(res) == 0 {
		return nil, ErrNotFound
	}

	var raw redisDocument
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(res); err != nil {
		return nil, fmt.Errorf("error decoding document: %w", err)
	}
	return raw.document(), nil
}

func (s *RedisStore) Update(ctx context.Context, id, code, language string) (*Document, error) {
	ok, err := updateScript.Run(ctx, s.rdb, []string{documentKey(id)}, code, language).Int()
	if err != nil {
		return nil, fmt.Errorf("error updating document: %w", err)
	}
	if ok == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("error listing expired documents: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = documentKey(id)
		members[i] = id
	}

	var deleted *redis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, expiryIndexKey, members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error deleting expired documents: %w", err)
	}
	log.Debug().Int("candidates", len(ids)).Int64("deleted", deleted.Val()).Msg("swept expired documents")
	return deleted.Val(), nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
