package web

import (
	"github.com/gorilla/websocket"
	"sync"
	"time"
)

const (
	pingInterval  = 1 * time.Second
	aliveDeadline = 5 * time.Second
	writeDeadline = 1 * time.Second
)

type readResult struct {
	messageType int
	err         error
}

// connection serializes writes as a websocket allows one writer at a time.
type connection struct {
	mutex sync.Mutex
	conn  *websocket.Conn
}

func (c *connection) write(messageType int, data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}

	return c.conn.WriteMessage(messageType, data)
}

func (c *connection) ping() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.conn.WriteControl(
		websocket.PingMessage,
		[]byte{},
		time.Now().Add(writeDeadline),
	)
}

type keeper struct {
	mutex  sync.RWMutex
	active map[*websocket.Conn]*connection
}

func newKeeper() *keeper {
	return &keeper{
		active: make(map[*websocket.Conn]*connection),
	}
}

func (k *keeper) add(conn *websocket.Conn) *connection {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	connection := &connection{conn: conn}
	k.active[conn] = connection

	return connection
}

func (k *keeper) count() int {
	k.mutex.RLock()
	defer k.mutex.RUnlock()

	return len(k.active)
}

func (k *keeper) connections() []*connection {
	k.mutex.RLock()
	defer k.mutex.RUnlock()

	connections := make([]*connection, 0, len(k.active))
	for _, connection := range k.active {
		connections = append(connections, connection)
	}

	return connections
}

func (k *keeper) close(conn *websocket.Conn) {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	_ = conn.Close()
	delete(k.active, conn)
}

// keep pings the client until it stops answering or goes away.
func (k *keeper) keep(connection *connection) {
	conn := connection.conn
	defer k.close(conn)

	pinger := time.NewTicker(pingInterval)
	defer pinger.Stop()

	var aliveMutex sync.Mutex
	lastAlive := time.Now()

	markAlive := func() {
		aliveMutex.Lock()
		lastAlive = time.Now()
		aliveMutex.Unlock()
	}

	ponger := conn.PongHandler()
	conn.SetPongHandler(func(appData string) error {
		markAlive()
		return ponger(appData)
	})

	done := make(chan struct{})
	defer close(done)

	read := make(chan readResult)
	go func() {
		for {
			messageType, _, err := conn.ReadMessage()

			select {
			case read <- readResult{messageType, err}:
			case <-done:
				return
			}

			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-pinger.C:
			if err := connection.ping(); err != nil {
				return
			}

			aliveMutex.Lock()
			expired := time.Since(lastAlive) > aliveDeadline
			aliveMutex.Unlock()

			if expired {
				return
			}
		case result := <-read:
			if result.err != nil {
				return
			}

			if result.messageType == websocket.CloseMessage {
				return
			}

			markAlive()
		}
	}
}
