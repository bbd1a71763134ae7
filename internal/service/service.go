// Package service holds the alerting pipeline's orchestration: event-driven
// analysis of a single changed record, the pull-based health report, the
// push dispatch endpoint and supplier order texts.
package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/internal/auth"
	"github.com/restock-systems/stockwatch/internal/composer"
	"github.com/restock-systems/stockwatch/internal/idempotency"
	"github.com/restock-systems/stockwatch/internal/models"
	"github.com/restock-systems/stockwatch/internal/relay"
	"github.com/restock-systems/stockwatch/internal/repository"
)

// Composer produces notification text.
type Composer interface {
	SingleItemAlert(ctx context.Context, rec *models.StockRecord) composer.Fragment
	BatchSummary(ctx context.Context, alerts []models.AlertEntry) composer.Fragment
	SupplierOrderText(ctx context.Context, req *models.OrderTextRequest) composer.Fragment
}

// Requirements are configuration checks run when an operation is first
// used. A nil check always passes.
type Requirements struct {
	Analyzer func() error
	Push     func() error
	Report   func() error
}

// Options wires a Service. Components an operation does not use may be nil
// as long as that operation's requirement check fails first.
type Options struct {
	Composer       Composer
	Relay          relay.Relay
	Dispatcher     relay.Dispatcher
	Repository     repository.Repository
	Validator      auth.Validator
	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration
	ServiceKey     string
	QueryTimeout   time.Duration
	Requirements   Requirements
	Logger         *logging.Logger
}

// Service implements the pipeline operations.
type Service struct {
	composer     Composer
	relay        relay.Relay
	dispatcher   relay.Dispatcher
	repo         repository.Repository
	validator    auth.Validator
	idem         idempotency.Store
	idemTTL      time.Duration
	serviceKey   string
	queryTimeout time.Duration
	req          Requirements
	logger       *logging.Logger
}

// New creates a Service.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 10 * time.Minute
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 10 * time.Second
	}
	return &Service{
		composer:     opts.Composer,
		relay:        opts.Relay,
		dispatcher:   opts.Dispatcher,
		repo:         opts.Repository,
		validator:    opts.Validator,
		idem:         opts.Idempotency,
		idemTTL:      opts.IdempotencyTTL,
		serviceKey:   opts.ServiceKey,
		queryTimeout: opts.QueryTimeout,
		req:          opts.Requirements,
		logger:       opts.Logger,
	}
}

func check(fn func() error) error {
	if fn == nil {
		return nil
	}
	return fn()
}

// authorizeService compares the caller's bearer token with the service key
// in constant time.
func (s *Service) authorizeService(token string) bool {
	if s.serviceKey == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.serviceKey)) == 1
}
