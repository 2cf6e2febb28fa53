// Package httpquery queries the destination chain through the presenter HTTP API.
package httpquery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"

	"github.com/bridgekit/gravity-orchestrator/chain"
	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/presenter"
	"github.com/bridgekit/gravity-orchestrator/presenter/http/render"
)

var ErrUnexpectedResponse = errors.New("unexpected query response")

type Client struct {
	client *resty.Client
}

var _ chain.QueryClient = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (c *Client) get(ctx context.Context, req *resty.Request, path string, res interface{}) error {
	errRes := new(render.ErrorResponse)
	resp, err := req.
		SetContext(ctx).
		SetResult(res).
		SetError(errRes).
		Get(path)
	if err != nil {
		return fmt.Errorf("can't query %s: %w", path, err)
	}
	if !resp.IsError() {
		return nil
	}
	switch errRes.Code {
	case gravity.CodeOK, gravity.CodeInternal:
		return fmt.Errorf("query %s failed with status %d: %s: %w", path, resp.StatusCode(), errRes.Error, ErrUnexpectedResponse)
	default:
		return gravity.ErrorFromCode(errRes.Code, errRes.Error)
	}
}

func (c *Client) LastEventNonceForValidator(ctx context.Context, addr common.Address) (uint64, error) {
	res := new(presenter.LastEventNonceResult)
	req := c.client.R().SetPathParam("address", addr.Hex())
	if err := c.get(ctx, req, "/validators/{address}/last_event_nonce", res); err != nil {
		return 0, err
	}
	return res.EventNonce, nil
}

func (c *Client) Attestations(ctx context.Context, filter gravity.AttestationFilter) ([]*gravity.Attestation, error) {
	req := c.client.R()
	if filter.Nonce != 0 {
		req.SetQueryParam("nonce", strconv.FormatUint(filter.Nonce, 10))
	}
	if filter.Type != "" {
		req.SetQueryParam("type", string(filter.Type))
	}
	if filter.Observed != nil {
		req.SetQueryParam("observed", strconv.FormatBool(*filter.Observed))
	}
	if filter.Limit != 0 {
		req.SetQueryParam("limit", strconv.FormatUint(filter.Limit, 10))
	}
	var res []*gravity.Attestation
	if err := c.get(ctx, req, "/attestations", &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) DenomToERC20(ctx context.Context, denom string) (*gravity.DenomToERC20, error) {
	res := new(gravity.DenomToERC20)
	req := c.client.R().SetPathParam("denom", denom)
	if err := c.get(ctx, req, "/denoms/{denom}/erc20", res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) BridgeStatus(ctx context.Context) (*gravity.BridgeStatus, error) {
	res := new(gravity.BridgeStatus)
	if err := c.get(ctx, c.client.R(), "/bridge/status", res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) BridgeHistory(ctx context.Context, limit uint64) (*presenter.BridgeHistoryResult, error) {
	res := new(presenter.BridgeHistoryResult)
	req := c.client.R()
	if limit != 0 {
		req.SetQueryParam("limit", strconv.FormatUint(limit, 10))
	}
	if err := c.get(ctx, req, "/bridge/history", res); err != nil {
		return nil, err
	}
	return res, nil
}
