package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"golang.org/x/net/netutil"

	"github.com/mcoot/nethang/internal/model"
)

// AutoPort asks the operating system for an ephemeral port
const AutoPort = 0

// Listen binds the first candidate port that is free. A positive limit caps
// the number of simultaneously open accepted connections.
func Listen(ctx context.Context, host string, ports []int, limit int, logger *slog.Logger) (net.Listener, error) {
	if len(ports) == 0 {
		return nil, fmt.Errorf("%w: no candidate ports", model.ErrBindFailure)
	}

	var lc net.ListenConfig
	var errs []error
	for _, port := range ports {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		l, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			logger.Warn("bind failed", slog.String("addr", addr), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		logger.Info("listening", slog.String("addr", l.Addr().String()))
		if limit > 0 {
			l = netutil.LimitListener(l, limit)
		}
		return l, nil
	}
	return nil, fmt.Errorf("%w: %w", model.ErrBindFailure, errors.Join(errs...))
}
