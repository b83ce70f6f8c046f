package proxy

import (
	"bytes"
	"context"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(zerolog.New(zerolog.TestWriter{T: t}).WithContext(context.Background()), 5*time.Second)
	defer cancel()

	socketPath := filepath.Join(t.TempDir(), "lsp.sock")
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		_, _ = conn.Write([]byte(strings.ToUpper(string(data))))
	}()

	var out bytes.Buffer
	err = (&Handler{}).Run(ctx, socketPath, strings.NewReader("content-length: 2\r\n\r\n{}"), &out)
	require.NoError(t, err)
	assert.Equal(t, "CONTENT-LENGTH: 2\r\n\r\n{}", out.String())
}

func TestProxyMissingSocket(t *testing.T) {
	err := (&Handler{}).Run(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), strings.NewReader(""), io.Discard)
	assert.Error(t, err)
}
