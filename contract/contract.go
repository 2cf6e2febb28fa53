package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bridgekit/gravity-orchestrator/contract/abi"
	"github.com/bridgekit/gravity-orchestrator/ethclient"
)

type Contract struct {
	Address common.Address
	client  ethclient.Client
	abi     abi.ABI
}

func NewContract(client ethclient.Client, addr common.Address, contractABI abi.ABI) *Contract {
	return &Contract{Address: addr, client: client, abi: contractABI}
}

// Call packs the method call, runs it against the latest block and unpacks its outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("can't encode abi calldata: %w", err)
	}
	res, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.Address,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("can't call %s(...): %w", method, err)
	}
	out, err := c.abi.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("can't decode %s(...) result: %w", method, err)
	}
	return out, nil
}

func (c *Contract) FilterQuery(from, to uint) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: uintToBig(from),
		ToBlock:   uintToBig(to),
		Addresses: []common.Address{c.Address},
		Topics:    c.abi.Topics(),
	}
}

func (c *Contract) ParseLog(log *types.Log) (string, map[string]interface{}, error) {
	event, values, err := c.abi.ParseLog(log)
	if err != nil || event == nil {
		return "", nil, err
	}
	return event.Name, values, nil
}
