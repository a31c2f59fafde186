// Package milter classifies messages passing through an MTA using the milter protocol.
package milter

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/d--j/go-milter"
	"github.com/rs/zerolog"
	"github.com/spamid/spam-identifier/pkg/config"
	"github.com/spamid/spam-identifier/pkg/filter"
)

// Server represents the spamid milter server
type Server struct {
	config     *config.Config
	spamFilter *filter.SpamFilter
	milterSrv  *milter.Server
	logger     zerolog.Logger
}

// NewServer creates a milter server classifying with a trained spam filter
func NewServer(cfg *config.Config, spamFilter *filter.SpamFilter, logger zerolog.Logger) (*Server, error) {
	if !spamFilter.IsTrained() {
		return nil, fmt.Errorf("spam filter must be trained before serving")
	}

	// Only the sender and the body are needed
	milterOpts := []milter.Option{
		milter.WithProtocol(milter.OptNoConnect | milter.OptNoHelo | milter.OptNoRcptTo |
			milter.OptNoHeaders | milter.OptNoEOH | milter.OptNoData),
		milter.WithAction(milter.OptAddHeader),
	}

	if cfg.Milter.ReadTimeoutMs > 0 {
		milterOpts = append(milterOpts, milter.WithReadTimeout(
			time.Duration(cfg.Milter.ReadTimeoutMs)*time.Millisecond))
	}
	if cfg.Milter.WriteTimeoutMs > 0 {
		milterOpts = append(milterOpts, milter.WithWriteTimeout(
			time.Duration(cfg.Milter.WriteTimeoutMs)*time.Millisecond))
	}

	milterOpts = append(milterOpts, milter.WithMilter(func() milter.Milter {
		return NewHandler(cfg, spamFilter, logger)
	}))

	return &Server{
		config:     cfg,
		spamFilter: spamFilter,
		milterSrv:  milter.NewServer(milterOpts...),
		logger:     logger,
	}, nil
}

// Serve accepts milter connections on listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.milterSrv.Serve(listener)
	}()

	s.logger.Info().Str("address", listener.Addr().String()).Msg("milter listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			time.Duration(s.config.Milter.GracefulShutdownTimeout)*time.Millisecond,
		)
		defer cancel()

		if err := s.milterSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown milter server: %w", err)
		}
		s.logger.Info().Uint64("sessions", s.milterSrv.MilterCount()).Msg("milter stopped")

		return ctx.Err()

	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("milter server error: %w", err)
		}
		return nil
	}
}

// Close closes the milter server
func (s *Server) Close() error {
	return s.milterSrv.Close()
}
