package session

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"matchserver/config"
	"matchserver/server"
)

// testClient is a bare-bones stand-in for a real client: it writes raw
// newline-delimited JSON to one end of a net.Pipe and scans replies from
// the other, mirroring the wire protocol without depending on the codec
// package (which is internal plumbing, not something a client needs).
type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Scanner
}

func newTestClient(t *testing.T, srv *server.Server) *testClient {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	sess := New(serverConn, srv, 4096, 16)
	go sess.Serve(t.Context())
	t.Cleanup(func() { clientConn.Close() })
	return &testClient{t: t, conn: clientConn, reader: bufio.NewScanner(clientConn)}
}

func (c *testClient) send(v any) {
	c.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		c.t.Fatalf("marshal: %v", err)
	}
	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *testClient) recv() map[string]any {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if !c.reader.Scan() {
		c.t.Fatalf("scan failed: %v", c.reader.Err())
	}
	var out map[string]any
	if err := json.Unmarshal(c.reader.Bytes(), &out); err != nil {
		c.t.Fatalf("unmarshal %q: %v", c.reader.Text(), err)
	}
	return out
}

// tryRecv reports whether a message arrived within timeout, without
// failing the test if none did; used to assert silence.
func (c *testClient) tryRecv(timeout time.Duration) bool {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	ok := c.reader.Scan()
	c.conn.SetReadDeadline(time.Time{})
	if !ok {
		c.reader = bufio.NewScanner(c.conn)
	}
	return ok
}

func newTestServer() *server.Server {
	return server.New(config.Defaults(), nil)
}

func TestConnectThenJoinPairsTwoClients(t *testing.T) {
	srv := newTestServer()
	alice := newTestClient(t, srv)
	bob := newTestClient(t, srv)

	alice.send(map[string]any{"action": "CONNECT", "pseudo": "alice"})
	if reply := alice.recv(); reply["status"] != "OK" {
		t.Fatalf("alice CONNECT reply = %+v", reply)
	}
	bob.send(map[string]any{"action": "CONNECT", "pseudo": "bob"})
	if reply := bob.recv(); reply["status"] != "OK" {
		t.Fatalf("bob CONNECT reply = %+v", reply)
	}

	alice.send(map[string]any{"action": "JOIN", "pseudo": "alice"})
	bob.send(map[string]any{"action": "JOIN", "pseudo": "bob"})

	aliceStart := alice.recv()
	bobStart := bob.recv()
	if aliceStart["action"] != "START" || bobStart["action"] != "START" {
		t.Fatalf("expected START for both, got %+v / %+v", aliceStart, bobStart)
	}
	if aliceStart["opponent"] != "bob" || bobStart["opponent"] != "alice" {
		t.Fatalf("opponent mismatch: %+v / %+v", aliceStart, bobStart)
	}
}

func TestDuplicatePseudoRejected(t *testing.T) {
	srv := newTestServer()
	alice := newTestClient(t, srv)
	impostor := newTestClient(t, srv)

	alice.send(map[string]any{"action": "CONNECT", "pseudo": "alice"})
	alice.recv()

	impostor.send(map[string]any{"action": "CONNECT", "pseudo": "alice"})
	reply := impostor.recv()
	if reply["status"] != "ERROR" {
		t.Fatalf("expected ERROR status, got %+v", reply)
	}
}

func TestActionBeforeConnectIsRejected(t *testing.T) {
	srv := newTestServer()
	client := newTestClient(t, srv)

	client.send(map[string]any{"action": "JOIN", "pseudo": "ghost"})
	if client.tryRecv(200 * time.Millisecond) {
		t.Fatal("expected no reply for an action received before CONNECT")
	}

	client.send(map[string]any{"action": "CONNECT", "pseudo": "ghost"})
	if reply := client.recv(); reply["status"] != "OK" {
		t.Fatalf("session should still work after a dropped pre-CONNECT action, got %+v", reply)
	}
}
