package orchestrator

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/bridgekit/gravity-orchestrator/chain"
	"github.com/bridgekit/gravity-orchestrator/config"
	"github.com/bridgekit/gravity-orchestrator/entity"
	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/logging"
	"github.com/bridgekit/gravity-orchestrator/repository"
	"github.com/bridgekit/gravity-orchestrator/retry"
	"github.com/bridgekit/gravity-orchestrator/utils"
)

const defaultSyncBatchSize = 100

// ClaimSubmitter relays stored bridge events to the destination chain as claims of one orchestrator.
type ClaimSubmitter struct {
	logger       logging.Logger
	client       chain.Client
	repo         *repository.Repo
	key          *ecdsa.PrivateKey
	orchestrator common.Address
	chainID      string
	contract     common.Address
	policy       retry.Policy
	txTimeout    time.Duration
	batchSize    uint64
}

func NewClaimSubmitter(logger logging.Logger, client chain.Client, repo *repository.Repo, bridgeCfg *config.BridgeConfig, cfg *config.OrchestratorConfig, key *ecdsa.PrivateKey) *ClaimSubmitter {
	orchestrator := crypto.PubkeyToAddress(key.PublicKey)
	return &ClaimSubmitter{
		logger:       logger.WithField("orchestrator", orchestrator),
		client:       client,
		repo:         repo,
		key:          key,
		orchestrator: orchestrator,
		chainID:      bridgeCfg.Chain.ChainID,
		contract:     bridgeCfg.Address,
		policy:       retry.FromConfig(cfg.Retry),
		txTimeout:    cfg.TxTimeout,
		batchSize:    defaultSyncBatchSize,
	}
}

func (s *ClaimSubmitter) Orchestrator() common.Address {
	return s.orchestrator
}

// isRejection reports errors the chain will keep returning for the same claim.
func isRejection(err error) bool {
	return errors.Is(err, gravity.ErrNonceGap) ||
		errors.Is(err, gravity.ErrUnauthorized) ||
		errors.Is(err, gravity.ErrInvalidSignature) ||
		errors.Is(err, gravity.ErrInvalidClaim)
}

func (s *ClaimSubmitter) lastEventNonce(ctx context.Context) (uint64, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context) (uint64, error) {
		nonce, err := s.client.LastEventNonceForValidator(ctx, s.orchestrator)
		if errors.Is(err, gravity.ErrUnauthorized) {
			return 0, retry.Permanent(err)
		}
		return nonce, err
	})
}

// Sync reads the orchestrator's last accepted nonce from the destination chain and submits the
// stored events above it strictly in nonce order. A claim is only submitted after the previous one
// was accepted. It stops at the first missing event and, after a nonce gap, leaves the resync to
// the next call. It returns the number of accepted claims.
func (s *ClaimSubmitter) Sync(ctx context.Context) (int, error) {
	lastNonce, err := s.lastEventNonce(ctx)
	if err != nil {
		return 0, fmt.Errorf("can't get last event nonce: %w", err)
	}
	SubmitterEventNonce.WithLabelValues(s.orchestrator.String()).Set(float64(lastNonce))

	events, err := s.repo.BridgeEvents.FindFromNonce(ctx, s.chainID, s.contract, lastNonce+1, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("can't find bridge events: %w", err)
	}
	accepted := 0
	for _, e := range events {
		if e.EventNonce != lastNonce+1 {
			s.logger.WithFields(logrus.Fields{
				"expected_nonce": lastNonce + 1,
				"found_nonce":    e.EventNonce,
			}).Warn("bridge event is not observed yet, waiting")
			break
		}
		err = s.submit(ctx, e)
		switch {
		case err == nil:
			lastNonce = e.EventNonce
			accepted++
			SubmitterEventNonce.WithLabelValues(s.orchestrator.String()).Set(float64(lastNonce))
		case errors.Is(err, gravity.ErrNonceGap):
			s.logger.WithError(err).Warn("on-chain event nonce moved, resyncing")
			return accepted, nil
		default:
			return accepted, err
		}
	}
	return accepted, nil
}

func (s *ClaimSubmitter) submit(ctx context.Context, e *entity.BridgeEvent) error {
	claim, err := ClaimFromEvent(e, s.orchestrator)
	if err != nil {
		return err
	}
	sig, err := utils.SignData(s.key, claim.SignBytes(s.client.ChainID()))
	if err != nil {
		return err
	}
	msg := &gravity.MsgClaim{Claim: claim, Signature: sig}
	sub := &entity.ClaimSubmission{
		Orchestrator: s.orchestrator,
		EventNonce:   claim.EventNonce,
		ClaimHash:    claim.ClaimHash(),
		Status:       entity.SubmissionPending,
	}
	logger := s.logger.WithFields(logrus.Fields{
		"event_nonce": claim.EventNonce,
		"claim_type":  claim.Type,
		"claim_hash":  sub.ClaimHash,
	})

	_, err = retry.Do(ctx, s.policy, func(ctx context.Context) (struct{}, error) {
		sub.Attempts++
		hash, err := s.client.SubmitTransaction(ctx, msg)
		if err != nil {
			logger.WithError(err).Warn("failed to submit claim, retrying")
			return struct{}{}, err
		}
		sub.TxHash = &hash
		receipt, err := s.client.WaitForTx(ctx, hash, s.txTimeout)
		if err != nil {
			logger.WithError(err).WithField("tx_hash", hash).Warn("claim transaction is not included, retrying")
			return struct{}{}, err
		}
		err = receipt.Err()
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, gravity.ErrNonceGap) && sub.Attempts > 1:
			// an earlier attempt could have been included after its wait timed out
			nonce, qerr := s.client.LastEventNonceForValidator(ctx, s.orchestrator)
			if qerr == nil && nonce >= claim.EventNonce {
				return struct{}{}, nil
			}
			return struct{}{}, retry.Permanent(err)
		case isRejection(err):
			return struct{}{}, retry.Permanent(err)
		default:
			logger.WithError(err).Warn("claim transaction failed, retrying")
			return struct{}{}, err
		}
	})

	switch {
	case err == nil:
		sub.Status = entity.SubmissionAccepted
		logger.Info("claim accepted")
	case isRejection(err):
		sub.Status = entity.SubmissionRejected
		sub.Error = err.Error()
		logger.WithError(err).Warn("claim rejected")
	default:
		sub.Status = entity.SubmissionFailed
		sub.Error = err.Error()
		logger.WithError(err).Error("failed to submit claim")
	}
	SubmittedClaims.WithLabelValues(s.orchestrator.String(), string(sub.Status)).Inc()
	if rerr := s.repo.ClaimSubmissions.Ensure(ctx, sub); rerr != nil {
		logger.WithError(rerr).Error("can't save claim submission")
	}
	if err != nil {
		return fmt.Errorf("can't submit claim for event %d: %w", claim.EventNonce, err)
	}
	return nil
}
