package tcp

import (
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/framewire-net/framewire/x/compress"
	"github.com/framewire-net/framewire/x/transport"
)

// Dial connects to addr, negotiates an encoding per cfg and returns the
// ready connection. The caller owns the connection and must Close it.
func Dial(ctx context.Context, addr string, cfg transport.Config, log zerolog.Logger) (transport.Connection, error) {
	return DialWithProviders(ctx, addr, cfg, log, compress.BuiltIn()...)
}

// DialWithProviders is Dial with an explicit provider set.
func DialWithProviders(
	ctx context.Context, addr string, cfg transport.Config, log zerolog.Logger, providers ...compress.Provider,
) (transport.Connection, error) {
	timeouts := DefaultTimeoutConfig()
	if cfg.ReadTimeout > 0 {
		timeouts.Read = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		timeouts.Write = cfg.WriteTimeout
	}

	var d net.Dialer
	netConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	conn := newConnection(netConn, uuid.NewString(), log, timeouts)
	conn.setWriteLimit(cfg.WriteRate, cfg.WriteBurst)

	table := compress.Resolve(providers...)
	if err := conn.performHandshake(cfg, table); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}
