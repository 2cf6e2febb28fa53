// Package presenter serves the destination chain queries over HTTP.
package presenter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bridgekit/gravity-orchestrator/chain"
	"github.com/bridgekit/gravity-orchestrator/db"
	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/logging"
	custommw "github.com/bridgekit/gravity-orchestrator/presenter/http/middleware"
	"github.com/bridgekit/gravity-orchestrator/presenter/http/render"
	"github.com/bridgekit/gravity-orchestrator/repository"
)

const shutdownTimeout = 5 * time.Second

type Presenter struct {
	logger  logging.Logger
	client  chain.QueryClient
	repo    *repository.Repo
	chainID string
	root    chi.Router
}

func NewPresenter(logger logging.Logger, client chain.QueryClient, repo *repository.Repo, chainID string) *Presenter {
	p := &Presenter{
		logger:  logger,
		client:  client,
		repo:    repo,
		chainID: chainID,
		root:    chi.NewMux(),
	}
	p.root.Use(middleware.Throttle(20))
	p.root.Use(middleware.RequestID)
	p.root.Use(custommw.NewLoggerMiddleware(logger))
	p.root.Use(custommw.Recoverer)
	p.root.With(custommw.GetAddressMiddleware).
		Get("/validators/{address}/last_event_nonce", p.wrapJSONHandler(p.GetLastEventNonce))
	p.root.With(custommw.GetAttestationFilterMiddleware).
		Get("/attestations", p.wrapJSONHandler(p.GetAttestations))
	p.root.Get("/denoms/{denom}/erc20", p.wrapJSONHandler(p.GetDenomToERC20))
	p.root.Get("/bridge/status", p.wrapJSONHandler(p.GetBridgeStatus))
	p.root.With(custommw.GetLimitMiddleware).
		Get("/bridge/history", p.wrapJSONHandler(p.GetBridgeHistory))
	return p
}

func (p *Presenter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.root.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is done.
func (p *Presenter) Serve(ctx context.Context, addr string) error {
	p.logger.WithField("addr", addr).Info("starting presenter service")
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.root,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			p.logger.WithError(err).Error("failed to shutdown presenter service")
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (p *Presenter) wrapJSONHandler(handler func(ctx context.Context) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r.Context())
		if err != nil {
			render.Error(w, r, statusFromError(err), err)
			return
		}
		render.JSON(w, r, http.StatusOK, res)
	}
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, gravity.ErrUnauthorized),
		errors.Is(err, gravity.ErrUnknownDenom),
		errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, custommw.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (p *Presenter) GetLastEventNonce(ctx context.Context) (interface{}, error) {
	addr := custommw.Address(ctx)
	nonce, err := p.client.LastEventNonceForValidator(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &LastEventNonceResult{
		Address:    addr,
		EventNonce: nonce,
	}, nil
}

func (p *Presenter) GetAttestations(ctx context.Context) (interface{}, error) {
	atts, err := p.client.Attestations(ctx, custommw.AttestationFilter(ctx))
	if err != nil {
		return nil, err
	}
	if atts == nil {
		atts = []*gravity.Attestation{}
	}
	return atts, nil
}

func (p *Presenter) GetDenomToERC20(ctx context.Context) (interface{}, error) {
	return p.client.DenomToERC20(ctx, chi.URLParamFromCtx(ctx, "denom"))
}

func (p *Presenter) GetBridgeStatus(ctx context.Context) (interface{}, error) {
	return p.client.BridgeStatus(ctx)
}

func (p *Presenter) GetBridgeHistory(ctx context.Context) (interface{}, error) {
	samples, err := p.repo.BridgeStateSamples.FindLatest(ctx, p.chainID, custommw.Limit(ctx))
	if err != nil {
		p.logger.WithError(err).Error("failed to find bridge state samples")
		return nil, err
	}
	res := &BridgeHistoryResult{
		ChainID: p.chainID,
		Samples: make([]*BridgeStateSampleInfo, len(samples)),
	}
	for i, s := range samples {
		res.Samples[i] = &BridgeStateSampleInfo{
			State:             s.State,
			LastObservedNonce: s.LastObservedNonce,
			MaxValidatorNonce: s.MaxValidatorNonce,
			MinValidatorNonce: s.MinValidatorNonce,
			Contested:         s.Contested,
			SampledAt:         s.SampledAt,
		}
	}
	return res, nil
}
