package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bazarmarket/bazar/feed"
	"github.com/bazarmarket/bazar/postgres"
)

type Config struct {
	Postgres          *postgres.Postgres
	Feed              *feed.Feed
	BaseCtx           context.Context
	BackgroundTimeout time.Duration
}

type Service struct {
	Postgres *postgres.Postgres
	Feed     *feed.Feed

	baseCtx           context.Context
	backgroundTimeout time.Duration
	wg                sync.WaitGroup
	errs              chan error
}

func New(cfg *Config) *Service {
	return &Service{
		Postgres: cfg.Postgres,
		Feed:     cfg.Feed,

		baseCtx:           cfg.BaseCtx,
		backgroundTimeout: cfg.BackgroundTimeout,
		errs:              make(chan error, 1),
	}
}

func (svc *Service) Errs() <-chan error {
	return svc.errs
}

func (svc *Service) Close() error {
	svc.wg.Wait()
	close(svc.errs)
	return nil
}

// background runs fn detached from the request that spawned it, capped
// by the configured timeout. Failures and panics surface on Errs().
func (svc *Service) background(fn func(ctx context.Context) error) {
	svc.wg.Go(func() {
		defer func() {
			if rcv := recover(); rcv != nil {
				select {
				case svc.errs <- fmt.Errorf("service background panic: %v", rcv):
				default:
				}
			}
		}()

		ctx, cancel := context.WithTimeout(svc.baseCtx, svc.backgroundTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			select {
			case svc.errs <- fmt.Errorf("service background error: %w", err):
			default:
			}
		}
	})
}
