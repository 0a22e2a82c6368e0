package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	assert := assert.New(t)

	t.Run("Empty Queue", func(t *testing.T) {
		q := New[byte](1)

		assert.True(q.IsEmpty())
		assert.Equal(0, q.Length())

		_, ok := q.Dequeue()
		assert.False(ok)
		_, ok = q.Peek()
		assert.False(ok)
	})

	t.Run("Enqueue and Dequeue", func(t *testing.T) {
		q := New[byte](1)

		q.Enqueue(0x20, 0x01)
		q.Enqueue(0x1F)
		assert.Equal(3, q.Length())

		for _, want := range []byte{0x20, 0x01, 0x1F} {
			b, ok := q.Dequeue()
			assert.True(ok)
			assert.Equal(want, b)
		}

		assert.True(q.IsEmpty())
		_, ok := q.Dequeue()
		assert.False(ok)
	})

	t.Run("Peek", func(t *testing.T) {
		q := New[string](2)

		q.Enqueue("a", "b")

		v, ok := q.Peek()
		assert.True(ok)
		assert.Equal("a", v)
		assert.Equal(2, q.Length()) // Length should not change after peek
	})

	t.Run("Reset", func(t *testing.T) {
		q := New[int](4)

		q.Enqueue(1, 2, 3)
		q.Reset()
		assert.True(q.IsEmpty())

		q.Enqueue(4)
		v, ok := q.Dequeue()
		assert.True(ok)
		assert.Equal(4, v)
	})

	t.Run("Interleaved keeps order", func(t *testing.T) {
		q := New[int](4)

		next := 0
		for i := 0; i < 100; i++ {
			q.Enqueue(i*2, i*2+1)

			v, ok := q.Dequeue()
			assert.True(ok)
			assert.Equal(next, v)
			next++
		}

		assert.Equal(100, q.Length())
		assert.LessOrEqual(cap(q.items), 256)

		for !q.IsEmpty() {
			v, _ := q.Dequeue()
			assert.Equal(next, v)
			next++
		}
		assert.Equal(200, next)
	})
}
