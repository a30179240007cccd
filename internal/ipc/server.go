package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

// Handler answers one request from another tellyspelly invocation.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve answers one request per connection until ctx is done or the listener
// closes, then waits for in-flight replies.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	var conns errgroup.Group
	for {
		conn, err := listener.Accept()
		if err != nil {
			_ = conns.Wait()
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept ipc connection: %w", err)
		}
		conns.Go(func() error {
			serveConn(ctx, conn, handler)
			return nil
		})
	}
}

// connIOTimeout bounds reading the request and writing the reply.
var connIOTimeout = time.Second

func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	reply := json.NewEncoder(conn)
	var req Request
	_ = conn.SetReadDeadline(time.Now().Add(connIOTimeout))
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(connIOTimeout))
		_ = reply.Encode(Response{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}
	resp := handler.Handle(ctx, req)
	_ = conn.SetWriteDeadline(time.Now().Add(connIOTimeout))
	_ = reply.Encode(resp)
}
