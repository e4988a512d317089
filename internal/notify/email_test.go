package notify

import (
	"bytes"
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"seatwatch/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

// fakeSMTP accepts mail without offering AUTH or STARTTLS.
type fakeSMTP struct {
	listener net.Listener

	mu          sync.Mutex
	connections int
	recipients  []string
	data        []string
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	server := &fakeSMTP{listener: listener}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go server.serve(conn)
		}
	}()
	return server
}

func (s *fakeSMTP) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve(conn net.Conn) {
	defer conn.Close()
	s.mu.Lock()
	s.connections++
	s.mu.Unlock()

	text := textproto.NewConn(conn)
	text.PrintfLine("220 localhost ESMTP")
	for {
		line, err := text.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			text.PrintfLine("250-localhost")
			text.PrintfLine("250 8BITMIME")
		case "MAIL":
			text.PrintfLine("250 ok")
		case "RCPT":
			s.mu.Lock()
			s.recipients = append(s.recipients, strings.Trim(strings.TrimPrefix(line, "RCPT TO:"), "<>"))
			s.mu.Unlock()
			text.PrintfLine("250 ok")
		case "DATA":
			text.PrintfLine("354 go ahead")
			data, err := text.ReadDotBytes()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = append(s.data, string(data))
			s.mu.Unlock()
			text.PrintfLine("250 queued")
		case "QUIT":
			text.PrintfLine("221 bye")
			return
		default:
			text.PrintfLine("250 ok")
		}
	}
}

func TestEmailNotifierWithoutAuth(t *testing.T) {
	server := startFakeSMTP(t)
	tel := &telemetry.Recorder{}
	notifier := NewEmailNotifier(EmailOptions{
		Server:   "127.0.0.1",
		Port:     server.port(),
		From:     "bot@example.com",
		Password: "secret",
	}, tel)

	err := notifier.Send(
		context.Background(),
		[]string{"a@example.com", "b@example.com"},
		"Plazas nuevas",
		"hola",
	)
	require.NoError(t, err)

	server.mu.Lock()
	defer server.mu.Unlock()
	// the first attempt is dropped once the server turns out not to support auth
	require.Equal(t, 2, server.connections)
	require.Equal(t, []string{"a@example.com", "b@example.com"}, server.recipients)
	require.Len(t, server.data, 1)
	require.Contains(t, server.data[0], "Subject: Plazas nuevas")
	require.Contains(t, server.data[0], "hola")
	require.Empty(t, tel.Reports("broken"))
}

func TestEmailNotifierFailure(t *testing.T) {
	// nothing listens on a closed listener's port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	tel := &telemetry.Recorder{}
	notifier := NewEmailNotifier(EmailOptions{
		Server: "127.0.0.1",
		Port:   port,
		From:   "bot@example.com",
	}, tel)

	err = notifier.Send(context.Background(), []string{"a@example.com"}, "s", "b")
	require.ErrorIs(t, err, ErrNotify)
	require.True(t, tel.Has("broken", report_notify_send))

	err = notifier.Send(context.Background(), nil, "s", "b")
	require.ErrorIs(t, err, ErrNotify)
}

func TestWriterNotifier(t *testing.T) {
	var out bytes.Buffer
	notifier := NewWriterNotifier(&out)

	err := notifier.Send(context.Background(), []string{"a@example.com", "b@example.com"}, "Asunto", "Cuerpo")
	require.NoError(t, err)
	require.Equal(t, "To: a@example.com, b@example.com\nSubject: Asunto\n\nCuerpo\n\n", out.String())
}
