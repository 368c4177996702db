package notify

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_DrainReturnsInOrder(t *testing.T) {
	feed := NewFeed(10, zerolog.Nop())

	feed.Success("Product saved")
	feed.Error("Export failed")

	items := feed.Drain()
	require.Len(t, items, 2)
	assert.Equal(t, LevelSuccess, items[0].Level)
	assert.Equal(t, "Product saved", items[0].Message)
	assert.Equal(t, LevelError, items[1].Level)
	assert.Equal(t, "Export failed", items[1].Message)
	assert.NotEqual(t, items[0].ID, items[1].ID)
	assert.False(t, items[0].CreatedAt.IsZero())
}

func TestFeed_DrainClears(t *testing.T) {
	feed := NewFeed(10, zerolog.Nop())
	feed.Success("once")

	assert.Len(t, feed.Drain(), 1)
	assert.Empty(t, feed.Drain())
	assert.NotNil(t, feed.Drain())
	assert.Equal(t, 0, feed.Pending())
}

func TestFeed_DropsOldestWhenFull(t *testing.T) {
	feed := NewFeed(3, zerolog.Nop())
	for i := 0; i < 5; i++ {
		feed.Success(fmt.Sprintf("message %d", i))
	}

	items := feed.Drain()
	require.Len(t, items, 3)
	assert.Equal(t, "message 2", items[0].Message)
	assert.Equal(t, "message 4", items[2].Message)
}

func TestFeed_DefaultCapacity(t *testing.T) {
	feed := NewFeed(0, zerolog.Nop())
	assert.Equal(t, DefaultCapacity, feed.capacity)
}

func TestFeed_ConcurrentUse(t *testing.T) {
	feed := NewFeed(1000, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				feed.Success("ok")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, feed.Pending())
}
