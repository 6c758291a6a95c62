// Package relay пересылает изменения блоков между узлами через NATS.
// Каждый узел публикует свои изменения в <prefix>.<уровень> и применяет чужие.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/logging"
	"github.com/annel0/levelforge/internal/vec"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ErrAlreadyAttached — уровень с таким именем уже подключён к ретранслятору
var ErrAlreadyAttached = errors.New("уровень уже подключён к ретранслятору")

// Conn — часть *nats.Conn, которой пользуется ретранслятор
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Config — параметры подключения к NATS
type Config struct {
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// BlockMessage — изменение одного блока на проводе
type BlockMessage struct {
	Level     string    `json:"level"`
	X         int16     `json:"x"`
	Z         int16     `json:"z"`
	Y         int16     `json:"y"`
	Block     byte      `json:"block"`
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"ts"`
}

// Stats — счётчики ретранслятора
type Stats struct {
	Published int64 `json:"published"`
	Received  int64 `json:"received"`
	Errors    int64 `json:"errors"`
}

// remoteOrigin помечает изменения, пришедшие с другого узла, чтобы не публиковать их повторно
type remoteOrigin struct {
	nodeID string
}

func (r remoteOrigin) ID() string                        { return "relay:" + r.nodeID }
func (r remoteOrigin) SendBlockChange(vec.Vec3S, byte) {}

type attachment struct {
	level  *level.Level
	remove func()
	sub    *nats.Subscription
}

// NATSRelay связывает локальные уровни с шиной NATS
type NATSRelay struct {
	conn   Conn
	nc     *nats.Conn // собственное соединение, закрывается в Close
	prefix string
	nodeID string

	mu     sync.Mutex
	levels map[string]*attachment

	published atomic.Int64
	received  atomic.Int64
	errors    atomic.Int64
}

// Connect подключается к NATS и создаёт ретранслятор. Пустой nodeID заменяется на UUID.
func Connect(cfg Config, nodeID string) (*NATSRelay, error) {
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name("levelforge-relay"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	r := New(nc, cfg.SubjectPrefix, nodeID)
	r.nc = nc
	logging.Info("🔗 NATS relay подключён: %s (prefix: %s, node: %s)", cfg.URL, r.prefix, r.nodeID)
	return r, nil
}

// New создаёт ретранслятор поверх готового соединения
func New(conn Conn, prefix, nodeID string) *NATSRelay {
	if prefix == "" {
		prefix = "levelforge.blocks"
	}
	if nodeID == "" {
		nodeID = uuid.NewString()
	}
	return &NATSRelay{
		conn:   conn,
		prefix: prefix,
		nodeID: nodeID,
		levels: make(map[string]*attachment),
	}
}

// NodeID возвращает идентификатор узла
func (r *NATSRelay) NodeID() string { return r.nodeID }

// Subject возвращает тему NATS для уровня
func (r *NATSRelay) Subject(levelName string) string {
	return r.prefix + "." + strings.ToLower(levelName)
}

// Attach начинает публиковать изменения уровня и применять чужие
func (r *NATSRelay) Attach(l *level.Level) error {
	key := strings.ToLower(l.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.levels[key]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyAttached, l.Name)
	}

	sub, err := r.conn.Subscribe(r.Subject(l.Name), r.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.Subject(l.Name), err)
	}

	remove := l.OnChange(func(l *level.Level, pos vec.Vec3S, id byte, originator level.Viewer) {
		if _, remote := originator.(remoteOrigin); remote {
			return
		}
		r.publish(l.Name, pos, id)
	})

	r.levels[key] = &attachment{level: l, remove: remove, sub: sub}
	logging.Info("Уровень %s подключён к ретранслятору (%s)", l.Name, r.Subject(l.Name))
	return nil
}

// Detach отключает уровень. Возвращает false, если он не был подключён.
func (r *NATSRelay) Detach(name string) bool {
	key := strings.ToLower(name)

	r.mu.Lock()
	a, ok := r.levels[key]
	delete(r.levels, key)
	r.mu.Unlock()

	if !ok {
		return false
	}
	a.remove()
	if a.sub != nil {
		if err := a.sub.Unsubscribe(); err != nil {
			logging.Error("Failed to unsubscribe from %s: %v", r.Subject(name), err)
		}
	}
	return true
}

// Close отключает все уровни и закрывает собственное соединение
func (r *NATSRelay) Close() error {
	r.mu.Lock()
	names := make([]string, 0, len(r.levels))
	for _, a := range r.levels {
		names = append(names, a.level.Name)
	}
	r.mu.Unlock()

	for _, name := range names {
		r.Detach(name)
	}
	if r.nc != nil {
		r.nc.Close()
	}
	logging.Info("NATS relay closed")
	return nil
}

// Stats возвращает счётчики
func (r *NATSRelay) Stats() Stats {
	return Stats{
		Published: r.published.Load(),
		Received:  r.received.Load(),
		Errors:    r.errors.Load(),
	}
}

func (r *NATSRelay) publish(levelName string, pos vec.Vec3S, id byte) {
	msg := BlockMessage{
		Level:     levelName,
		X:         pos.X,
		Z:         pos.Z,
		Y:         pos.Y,
		Block:     id,
		NodeID:    r.nodeID,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		r.errors.Add(1)
		logging.Error("Failed to marshal block message: %v", err)
		return
	}

	if err := r.conn.Publish(r.Subject(levelName), data); err != nil {
		r.errors.Add(1)
		logging.Error("Failed to publish block change %s %v: %v", levelName, pos, err)
		return
	}
	r.published.Add(1)
}

func (r *NATSRelay) handleMessage(m *nats.Msg) {
	r.received.Add(1)

	var msg BlockMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		r.errors.Add(1)
		logging.Error("Failed to unmarshal block message: %v", err)
		return
	}

	// собственные сообщения уже применены локально
	if msg.NodeID == r.nodeID {
		return
	}
	if !block.Valid(msg.Block) {
		r.errors.Add(1)
		logging.Warn("Узел %s прислал неизвестный блок %d", msg.NodeID, msg.Block)
		return
	}

	r.mu.Lock()
	a, ok := r.levels[strings.ToLower(msg.Level)]
	r.mu.Unlock()
	if !ok {
		return
	}

	pos := vec.Vec3S{X: msg.X, Z: msg.Z, Y: msg.Y}
	a.level.BlockChange(pos, msg.Block, remoteOrigin{nodeID: msg.NodeID})
}
