package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newConnPair upgrades a loopback HTTP connection and returns both ends
func newConnPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	connCh := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		connCh <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return <-connCh, client
}

func TestClientSendDuringStop(t *testing.T) {
	serverConn, _ := newConnPair(t)

	c := NewClient(WsClientParams{
		UserID: uuid.New(),
		Conn:   serverConn,
		Logger: zerolog.Nop(),
	})
	c.Start()

	// Sends racing Stop may be dropped or rejected but must never panic
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Send(NewServerMessage(MessageTypePong))
			}
		}()
	}

	c.Stop()
	wg.Wait()

	// Stop is idempotent
	c.Stop()

	err := c.Send(NewServerMessage(MessageTypePong))
	require.Error(t, err)
}
