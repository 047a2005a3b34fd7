package cdp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryContextScoping(t *testing.T) {
	ctx, cancel := deliveryContext(context.Background(), 50*time.Millisecond)
	defer cancel()
	dl, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), dl, 20*time.Millisecond)

	// 限时关闭时原样返回父上下文，不得引入截止时间
	parent := context.Background()
	ctx2, cancel2 := deliveryContext(parent, 0)
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.False(t, ok)
	assert.Equal(t, parent, ctx2)
}
