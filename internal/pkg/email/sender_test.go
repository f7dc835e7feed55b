package email

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentServer accepts connections and never sends a greeting.
func silentServer(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var held []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			held = append(held, conn)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
		for _, c := range held {
			c.Close()
		}
	})

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, p
}

func TestSMTPSender_StopsAtDeadline(t *testing.T) {
	host, port := silentServer(t)
	cfg := testConfig(false)
	cfg.SMTPHost, cfg.SMTPPort = host, port
	svc := NewService(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := svc.SendDirect(ctx, &Email{To: []string{"ada@example.com"}, Subject: "x", Body: "hi"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPSender_StopsOnCancel(t *testing.T) {
	host, port := silentServer(t)
	cfg := testConfig(false)
	cfg.SMTPHost, cfg.SMTPPort = host, port
	svc := NewService(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	err := svc.SendDirect(ctx, &Email{To: []string{"ada@example.com"}, Subject: "x", Body: "hi"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
