package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := New(ctx, WithAddress("127.0.0.1:1"), WithPrefix("test:"))
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestKeyPrefix(t *testing.T) {
	c := &Cache{prefix: "encuestas:"}
	assert.Equal(t, "encuestas:session:abc", c.key("session:abc"))
}
