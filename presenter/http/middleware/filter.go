package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/presenter/http/render"
)

type ctxKey int

const (
	addressCtxKey ctxKey = iota
	attestationFilterCtxKey
	limitCtxKey
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

var ErrInvalidParameter = errors.New("invalid request parameter")

func GetAddressMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := chi.URLParam(r, "address")
		if !common.IsHexAddress(address) {
			render.Error(w, r, http.StatusBadRequest, fmt.Errorf("%w: address %q", ErrInvalidParameter, address))
			return
		}

		ctx := context.WithValue(r.Context(), addressCtxKey, common.HexToAddress(address))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func Address(ctx context.Context) common.Address {
	if addr, ok := ctx.Value(addressCtxKey).(common.Address); ok {
		return addr
	}
	return common.Address{}
}

func parseUint(query map[string][]string, name string) (uint64, error) {
	values := query[name]
	if len(values) == 0 || values[0] == "" {
		return 0, nil
	}
	res, err := strconv.ParseUint(values[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse %s: %s", ErrInvalidParameter, name, err)
	}
	return res, nil
}

func GetAttestationFilterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter := gravity.AttestationFilter{
			Type: gravity.ClaimType(query.Get("type")),
		}

		var err error
		if filter.Nonce, err = parseUint(query, "nonce"); err != nil {
			render.Error(w, r, http.StatusBadRequest, err)
			return
		}
		if filter.Limit, err = parseUint(query, "limit"); err != nil {
			render.Error(w, r, http.StatusBadRequest, err)
			return
		}
		if observedStr := query.Get("observed"); observedStr != "" {
			observed, err2 := strconv.ParseBool(observedStr)
			if err2 != nil {
				render.Error(w, r, http.StatusBadRequest, fmt.Errorf("%w: failed to parse observed: %s", ErrInvalidParameter, err2))
				return
			}
			filter.Observed = &observed
		}

		ctx := context.WithValue(r.Context(), attestationFilterCtxKey, filter)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AttestationFilter(ctx context.Context) gravity.AttestationFilter {
	if filter, ok := ctx.Value(attestationFilterCtxKey).(gravity.AttestationFilter); ok {
		return filter
	}
	return gravity.AttestationFilter{}
}

func GetLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseUint(r.URL.Query(), "limit")
		if err != nil {
			render.Error(w, r, http.StatusBadRequest, err)
			return
		}
		if limit > maxLimit {
			render.Error(w, r, http.StatusBadRequest, fmt.Errorf("%w: cannot request more than %d entries", ErrInvalidParameter, maxLimit))
			return
		}
		if limit == 0 {
			limit = defaultLimit
		}

		ctx := context.WithValue(r.Context(), limitCtxKey, limit)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func Limit(ctx context.Context) uint64 {
	if limit, ok := ctx.Value(limitCtxKey).(uint64); ok {
		return limit
	}
	return defaultLimit
}
