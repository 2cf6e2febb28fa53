// Package abi holds the Gravity contract ABI and generic event log decoding.
package abi

//nolint:golint
import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:embed gravity.json
var gravityJSONABI string

var ErrInvalidEvent = errors.New("can't process event without topics")

const (
	SendToCosmosEvent             = "SendToCosmosEvent"
	TransactionBatchExecutedEvent = "TransactionBatchExecutedEvent"
	ValsetUpdatedEvent            = "ValsetUpdatedEvent"
	ERC20DeployedEvent            = "ERC20DeployedEvent"
)

var GravityABI = MustReadABI(gravityJSONABI)

type ABI struct {
	abi.ABI
}

func MustReadABI(rawJSON string) ABI {
	res, err := abi.JSON(strings.NewReader(rawJSON))
	if err != nil {
		panic(err)
	}
	return ABI{res}
}

func (a ABI) AllEvents() map[string]bool {
	events := make(map[string]bool, len(a.Events))
	for _, event := range a.Events {
		events[event.String()] = true
	}
	return events
}

// Topics returns the topic0 filter matching every event of the ABI.
func (a ABI) Topics() [][]common.Hash {
	ids := make([]common.Hash, 0, len(a.Events))
	for _, event := range a.Events {
		ids = append(ids, event.ID)
	}
	return [][]common.Hash{ids}
}

func indexed(args abi.Arguments) abi.Arguments {
	var res abi.Arguments
	for _, arg := range args {
		if arg.Indexed {
			res = append(res, arg)
		}
	}
	return res
}

func (a ABI) FindMatchingEventABI(topics []common.Hash) *abi.Event {
	for _, e := range a.Events {
		e := e
		if e.ID == topics[0] && len(indexed(e.Inputs)) == len(topics)-1 {
			return &e
		}
	}
	return nil
}

// ParseLog decodes log into the matching event name and its arguments.
// Logs of unknown events return an empty name and no error.
func (a ABI) ParseLog(log *types.Log) (*abi.Event, map[string]interface{}, error) {
	if len(log.Topics) == 0 {
		return nil, nil, ErrInvalidEvent
	}
	event := a.FindMatchingEventABI(log.Topics)
	if event == nil {
		return nil, nil, nil
	}

	values := make(map[string]interface{})
	indexedArgs := indexed(event.Inputs)
	if len(indexedArgs) < len(event.Inputs) {
		if err := event.Inputs.UnpackIntoMap(values, log.Data); err != nil {
			return nil, nil, fmt.Errorf("can't unpack data of %s: %w", event.Name, err)
		}
	}
	if err := abi.ParseTopicsIntoMap(values, indexedArgs, log.Topics[1:]); err != nil {
		return nil, nil, fmt.Errorf("can't unpack topics of %s: %w", event.Name, err)
	}
	return event, values, nil
}
