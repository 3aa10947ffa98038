package redisstore

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/secfit/ip-protector/internal/store/storetest"
)

func TestOpenBadURL(t *testing.T) {
	_, err := Open(context.Background(), "not-a-url", "")
	assert.Error(t, err)
}

var prefixKey = storetest.KeyFor("prefix")

func TestNewDefaultPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	s := New(client, "")
	assert.Equal(t, DefaultPrefix, s.prefix)
	assert.Equal(t, "custom:"+prefixKey.String(), New(client, "custom:").redisKey(prefixKey))
}
