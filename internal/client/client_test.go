package client_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/radiusgo/radiusd/internal/client"
	"github.com/radiusgo/radiusd/internal/radius"
)

// fakeServer binds a UDP socket and replies to every datagram it receives
// with an Access-Accept built from the request's own header, exercising
// the client's Response Authenticator verification path end to end.
func fakeServer(t *testing.T, secret []byte) *net.UDPConn {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, radius.MaxPacketSize)
		for {
			n, src, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			req, err := radius.ParsePacket(buf[:n])
			if err != nil {
				continue
			}
			reply, err := radius.NewReplyPacket(radius.CodeAccessAccept, req.Identifier, nil, buf[:n])
			if err != nil {
				continue
			}
			replyBytes, err := reply.ToBytes(secret)
			if err != nil {
				continue
			}
			_, _ = conn.WriteToUDP(replyBytes, src)
		}
	}()

	return conn
}

func TestClientSendReceivesVerifiedReply(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	srv := fakeServer(t, secret)
	_, portStr, err := net.SplitHostPort(srv.LocalAddr().String())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	dict := radius.NewDictionary()
	c := client.New(dict, "127.0.0.1", secret, nil,
		client.WithPort(radius.MsgAuth, uint16(port)),
		client.WithTimeout(500*time.Millisecond),
		client.WithRetries(1),
	)

	req, err := radius.NewRequestPacket(radius.CodeAccessRequest, 42, nil)
	if err != nil {
		t.Fatalf("NewRequestPacket: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := c.Send(ctx, radius.MsgAuth, req)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Code != radius.CodeAccessAccept {
		t.Errorf("reply code = %v, want Access-Accept", reply.Code)
	}
	if reply.Identifier != 42 {
		t.Errorf("reply identifier = %d, want 42", reply.Identifier)
	}
}

func TestClientSendTimesOutWhenNoServer(t *testing.T) {
	t.Parallel()

	dict := radius.NewDictionary()
	c := client.New(dict, "127.0.0.1", []byte("secret"), nil,
		client.WithPort(radius.MsgAuth, 1), // a port nothing listens on
		client.WithTimeout(100*time.Millisecond),
		client.WithRetries(0),
	)

	req, err := radius.NewRequestPacket(radius.CodeAccessRequest, 1, nil)
	if err != nil {
		t.Fatalf("NewRequestPacket: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := c.Send(ctx, radius.MsgAuth, req); err == nil {
		t.Error("Send should fail when nothing replies before the deadline")
	}
}

func TestClientDictionaryAccessor(t *testing.T) {
	t.Parallel()

	dict := radius.NewDictionary()
	c := client.New(dict, "127.0.0.1", []byte("secret"), nil)
	if c.Dictionary() != dict {
		t.Error("Dictionary() did not return the dictionary passed to New")
	}
}
