package localstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-redis/redis/v8"

	"tasksync/internal/session"
	"tasksync/pkg/crypto"
)

// Credentials menyimpan sesi di key tasksync:session. Token dienkripsi
// AES-GCM; data user disimpan apa adanya.
type Credentials struct {
	rdb *redis.Client
	key string
}

func NewCredentials(rdb *redis.Client, key string) *Credentials {
	return &Credentials{rdb: rdb, key: key}
}

type storedCredentials struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

func (c *Credentials) Load(ctx context.Context) (session.Credentials, bool, error) {
	data, err := c.rdb.Get(ctx, KeySession).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Credentials{}, false, nil
	}
	if err != nil {
		return session.Credentials{}, false, err
	}

	var stored storedCredentials
	if err := json.Unmarshal(data, &stored); err != nil {
		return session.Credentials{}, false, err
	}
	tok, err := crypto.Decrypt(stored.Token, c.key)
	if err != nil {
		return session.Credentials{}, false, err
	}
	out := session.Credentials{Token: tok}
	if err := json.Unmarshal(stored.User, &out.User); err != nil {
		return session.Credentials{}, false, err
	}
	return out, true, nil
}

func (c *Credentials) Save(ctx context.Context, creds session.Credentials) error {
	enc, err := crypto.Encrypt(creds.Token, c.key)
	if err != nil {
		return err
	}
	creds.User.Password = ""
	user, err := json.Marshal(creds.User)
	if err != nil {
		return err
	}
	data, err := json.Marshal(storedCredentials{Token: enc, User: user})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, KeySession, data, 0).Err()
}

func (c *Credentials) Clear(ctx context.Context) error {
	return c.rdb.Del(ctx, KeySession).Err()
}
