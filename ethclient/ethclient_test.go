package ethclient

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type testRPCError struct{}

func (testRPCError) Error() string  { return "limit exceeded" }
func (testRPCError) ErrorCode() int { return -32005 }

func TestRequestStatus(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		err    error
		status string
	}{
		{nil, "ok"},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "timeout"},
		{fmt.Errorf("wrapped: %w", testRPCError{}), "error--32005"},
		{fmt.Errorf("connection refused"), "error"},
	} {
		require.Equal(t, tc.status, requestStatus(tc.err))
	}
}

func TestToFilterArg(t *testing.T) {
	t.Parallel()

	addr := common.HexToAddress("0xa6439ca0fcba1d0f80df0be6a17220fed9c9038a")
	arg, err := toFilterArg(ethereum.FilterQuery{
		FromBlock: big.NewInt(16),
		ToBlock:   big.NewInt(255),
		Addresses: []common.Address{addr},
	})
	require.NoError(t, err)
	m := arg.(map[string]interface{})
	require.Equal(t, "0x10", m["fromBlock"])
	require.Equal(t, "0xff", m["toBlock"])
	require.Equal(t, []common.Address{addr}, m["address"])

	arg, err = toFilterArg(ethereum.FilterQuery{ToBlock: big.NewInt(1)})
	require.NoError(t, err)
	require.Equal(t, "0x0", arg.(map[string]interface{})["fromBlock"])

	_, err = toFilterArg(ethereum.FilterQuery{})
	require.ErrorIs(t, err, ErrInvalidLogsQuery)

	hash := common.HexToHash("0x01")
	_, err = toFilterArg(ethereum.FilterQuery{BlockHash: &hash, ToBlock: big.NewInt(1)})
	require.ErrorIs(t, err, ErrInvalidLogsQuery)
}
