// Package xfer moves one file's bytes over a single TCP connection.
package xfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"go.uber.org/zap"
)

const DefaultPort = "5000"

// NormalizeHostPort cuts the http:// https:// prefixes from the input address
// and adds a default port.
func NormalizeHostPort(addr, defPort string) string {
	if rest, ok := strings.CutPrefix(addr, "http://"); ok {
		addr = rest
	} else if rest, ok := strings.CutPrefix(addr, "https://"); ok {
		addr = rest
	}

	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}

	return addr + ":" + defPort
}

// Receive accepts one connection on ln and copies everything the peer sends
// into w until the peer closes. Cancelling ctx aborts the accept or the copy.
func Receive(ctx context.Context, ln net.Listener, w io.Writer, log *zap.Logger) (int64, error) {
	if log == nil {
		log = zap.NewNop()
	}
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()
	log.Info("connection accepted", zap.Stringer("remote", conn.RemoteAddr()))

	stopConn := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopConn()

	n, err := io.Copy(w, conn)
	if err != nil {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		return n, fmt.Errorf("receive: %w", err)
	}
	log.Info("end of transmission", zap.Int64("bytes", n))
	return n, nil
}

// Send dials addr and writes all of r to it, then closes the connection.
func Send(ctx context.Context, addr string, r io.Reader, log *zap.Logger) (int64, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", NormalizeHostPort(addr, DefaultPort))
	if err != nil {
		return 0, fmt.Errorf("dial: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	n, err := io.Copy(conn, r)
	if cerr := conn.Close(); err == nil && cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = cerr
	}
	if err != nil {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		return n, fmt.Errorf("send: %w", err)
	}
	log.Info("file transmitted", zap.Int64("bytes", n))
	return n, nil
}
