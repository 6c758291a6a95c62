package relay

import (
	"encoding/json"
	"slices"
	"sync"
	"testing"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/player"
	"github.com/annel0/levelforge/internal/vec"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBroker синхронно доставляет сообщения всем подписчикам темы
type memBroker struct {
	mu   sync.Mutex
	subs map[string][]nats.MsgHandler
	sent [][]byte
}

func newMemBroker() *memBroker {
	return &memBroker{subs: make(map[string][]nats.MsgHandler)}
}

func (b *memBroker) Publish(subject string, data []byte) error {
	b.mu.Lock()
	handlers := slices.Clone(b.subs[subject])
	b.sent = append(b.sent, data)
	b.mu.Unlock()

	for _, h := range handlers {
		h(&nats.Msg{Subject: subject, Data: data})
	}
	return nil
}

func (b *memBroker) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	b.mu.Lock()
	b.subs[subject] = append(b.subs[subject], cb)
	b.mu.Unlock()
	return nil, nil
}

func newNode(t *testing.T, broker *memBroker, id string) (*NATSRelay, *level.Level) {
	t.Helper()
	l, err := level.New("Main", vec.New(4, 4, 4))
	require.NoError(t, err)
	r := New(broker, "test.blocks", id)
	require.NoError(t, r.Attach(l))
	return r, l
}

func TestRelayMirrorsChanges(t *testing.T) {
	broker := newMemBroker()
	a, la := newNode(t, broker, "node-a")
	b, lb := newNode(t, broker, "node-b")

	viewer := player.NewMockSession("1", "watcher", lb)
	lb.AddViewer(viewer)

	pos := vec.New(1, 2, 3)
	require.True(t, la.BlockChange(pos, block.Stone, nil))

	assert.Equal(t, block.Stone, lb.GetBlock(pos))
	assert.Equal(t, []player.SentBlock{{Pos: pos, ID: block.Stone}}, viewer.Blocks())

	// B не публикует чужое изменение повторно
	assert.Equal(t, Stats{Published: 1, Received: 1}, a.Stats())
	assert.Equal(t, Stats{Published: 0, Received: 1}, b.Stats())

	var msg BlockMessage
	require.Len(t, broker.sent, 1)
	require.NoError(t, json.Unmarshal(broker.sent[0], &msg))
	assert.Equal(t, "Main", msg.Level)
	assert.Equal(t, int16(1), msg.X)
	assert.Equal(t, int16(2), msg.Z)
	assert.Equal(t, int16(3), msg.Y)
	assert.Equal(t, "node-a", msg.NodeID)
}

func TestRelaySubjectAndDuplicates(t *testing.T) {
	broker := newMemBroker()
	r, l := newNode(t, broker, "n")
	assert.Equal(t, "test.blocks.main", r.Subject("Main"))
	assert.ErrorIs(t, r.Attach(l), ErrAlreadyAttached)
}

func TestRelayRejectsBadMessages(t *testing.T) {
	broker := newMemBroker()
	r, l := newNode(t, broker, "n")

	require.NoError(t, broker.Publish("test.blocks.main", []byte("{broken")))
	bad, err := json.Marshal(BlockMessage{Level: "Main", Block: 250, NodeID: "other"})
	require.NoError(t, err)
	require.NoError(t, broker.Publish("test.blocks.main", bad))

	assert.Equal(t, int64(2), r.Stats().Errors)
	assert.Equal(t, block.Air, l.GetBlock(vec.New(0, 0, 0)))
}

func TestRelayDetach(t *testing.T) {
	broker := newMemBroker()
	r, l := newNode(t, broker, "n")

	assert.True(t, r.Detach("main"))
	assert.False(t, r.Detach("main"))

	l.BlockChange(vec.New(0, 0, 0), block.Dirt, nil)
	assert.Zero(t, r.Stats().Published)
	require.NoError(t, r.Close())
}
