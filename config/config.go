package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	defaultMaxBlockRangeSize  = 1000
	defaultQuorumNumerator    = 2
	defaultQuorumDenominator  = 3
	defaultStallWindow        = 2 * time.Minute
	defaultVotingPeriodBlocks = 10
	defaultEventsToKeep       = 1000
	defaultPollInterval       = 10 * time.Second
	defaultTxTimeout          = time.Minute
	defaultMonitorInterval    = 30 * time.Second
)

type RPCConfig struct {
	Host    string        `yaml:"host"`
	Timeout time.Duration `yaml:"timeout"`
}

type ChainConfig struct {
	RPC                *RPCConfig    `yaml:"rpc"`
	ChainID            string        `yaml:"chain_id"`
	BlockTime          time.Duration `yaml:"block_time"`
	BlockIndexInterval time.Duration `yaml:"block_index_interval"`
	SafeLogsRequest    bool          `yaml:"safe_logs_request"`
}

type BridgeConfig struct {
	ChainName          string         `yaml:"chain"`
	Chain              *ChainConfig   `yaml:"-"`
	Address            common.Address `yaml:"address"`
	StartBlock         uint           `yaml:"start_block"`
	BlockConfirmations uint           `yaml:"required_block_confirmations"`
	MaxBlockRangeSize  uint           `yaml:"max_block_range_size"`
}

type QuorumConfig struct {
	Numerator   uint64 `yaml:"numerator"`
	Denominator uint64 `yaml:"denominator"`
}

type DestinationConfig struct {
	ChainID            string        `yaml:"chain_id"`
	BlockTime          time.Duration `yaml:"block_time"`
	Quorum             *QuorumConfig `yaml:"quorum"`
	StallWindow        time.Duration `yaml:"stall_window"`
	VotingPeriodBlocks uint64        `yaml:"voting_period_blocks"`
	EventsToKeep       uint64        `yaml:"events_to_keep"`
	NativeDenoms       []string      `yaml:"native_denoms"`
}

type ValidatorConfig struct {
	Name            string         `yaml:"-"`
	Operator        common.Address `yaml:"operator"`
	OrchestratorKey string         `yaml:"orchestrator_key"`
	Power           uint64         `yaml:"power"`
}

// PrivateKey parses the hex encoded orchestrator key.
func (c *ValidatorConfig) PrivateKey() (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(c.OrchestratorKey))
	if err != nil {
		return nil, fmt.Errorf("can't parse orchestrator key of validator %s: %w", c.Name, err)
	}
	return key, nil
}

type RetryConfig struct {
	MaxAttempts     uint64        `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	Multiplier      float64       `yaml:"multiplier"`
	Timeout         time.Duration `yaml:"timeout"`
}

type OrchestratorConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	TxTimeout    time.Duration `yaml:"tx_timeout"`
	Retry        *RetryConfig  `yaml:"retry"`
}

type AlertConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

type MonitorConfig struct {
	QueryURL    string                  `yaml:"query_url"`
	Interval    time.Duration           `yaml:"interval"`
	Timeout     time.Duration           `yaml:"timeout"`
	StallWindow time.Duration           `yaml:"stall_window"`
	Alerts      map[string]*AlertConfig `yaml:"alerts"`
}

type DBConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"database"`
}

type PresenterConfig struct {
	Host string `yaml:"host"`
}

type Config struct {
	Chains       map[string]*ChainConfig     `yaml:"chains"`
	Bridge       *BridgeConfig               `yaml:"bridge"`
	Destination  *DestinationConfig          `yaml:"destination"`
	Validators   map[string]*ValidatorConfig `yaml:"validators"`
	Orchestrator *OrchestratorConfig         `yaml:"orchestrator"`
	Monitor      *MonitorConfig              `yaml:"monitor"`
	DBConfig     *DBConfig                   `yaml:"postgres"`
	LogLevel     logrus.Level                `yaml:"log_level"`
	Presenter    *PresenterConfig            `yaml:"presenter"`
}

// SortedValidators returns validators ordered by name, so every component sees the same order.
func (cfg *Config) SortedValidators() []*ValidatorConfig {
	res := make([]*ValidatorConfig, 0, len(cfg.Validators))
	for _, v := range cfg.Validators {
		res = append(res, v)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})
	return res
}

func readYamlConfig(blob []byte) (*Config, error) {
	cfg := new(Config)
	if err := parseYaml(cfg, blob); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) init() error {
	if cfg.Bridge != nil {
		chain, ok := cfg.Chains[cfg.Bridge.ChainName]
		if !ok {
			return fmt.Errorf("unknown chain %q in bridge config: %w", cfg.Bridge.ChainName, ErrInvalidConfig)
		}
		cfg.Bridge.Chain = chain
		if cfg.Bridge.MaxBlockRangeSize == 0 {
			cfg.Bridge.MaxBlockRangeSize = defaultMaxBlockRangeSize
		}
		if chain.BlockIndexInterval == 0 {
			chain.BlockIndexInterval = chain.BlockTime
		}
	}
	for name, v := range cfg.Validators {
		v.Name = name
	}
	if cfg.Destination != nil {
		d := cfg.Destination
		if d.Quorum == nil {
			d.Quorum = &QuorumConfig{Numerator: defaultQuorumNumerator, Denominator: defaultQuorumDenominator}
		}
		if d.StallWindow == 0 {
			d.StallWindow = defaultStallWindow
		}
		if d.VotingPeriodBlocks == 0 {
			d.VotingPeriodBlocks = defaultVotingPeriodBlocks
		}
		if d.EventsToKeep == 0 {
			d.EventsToKeep = defaultEventsToKeep
		}
	}
	if cfg.Orchestrator != nil {
		o := cfg.Orchestrator
		if o.PollInterval == 0 {
			o.PollInterval = defaultPollInterval
		}
		if o.TxTimeout == 0 {
			o.TxTimeout = defaultTxTimeout
		}
	}
	if cfg.Monitor != nil {
		m := cfg.Monitor
		if m.Interval == 0 {
			m.Interval = defaultMonitorInterval
		}
		if m.StallWindow == 0 {
			m.StallWindow = defaultStallWindow
		}
		if m.Timeout == 0 {
			m.Timeout = m.Interval
		}
	}
	return cfg.Validate()
}

// Validate reports every problem found in the config at once.
func (cfg *Config) Validate() error {
	var result *multierror.Error
	if d := cfg.Destination; d != nil {
		if d.Quorum.Denominator == 0 || d.Quorum.Numerator >= d.Quorum.Denominator {
			result = multierror.Append(result, fmt.Errorf("quorum %d/%d must be a fraction below 1: %w", d.Quorum.Numerator, d.Quorum.Denominator, ErrInvalidConfig))
		} else if 2*d.Quorum.Numerator < d.Quorum.Denominator {
			result = multierror.Append(result, fmt.Errorf("quorum %d/%d is below one half: %w", d.Quorum.Numerator, d.Quorum.Denominator, ErrInvalidConfig))
		}
		if d.ChainID == "" {
			result = multierror.Append(result, fmt.Errorf("destination chain_id is empty: %w", ErrInvalidConfig))
		}
	}
	seen := make(map[common.Address]string, len(cfg.Validators))
	for _, v := range cfg.SortedValidators() {
		if v.Power == 0 {
			result = multierror.Append(result, fmt.Errorf("validator %s has zero power: %w", v.Name, ErrInvalidConfig))
		}
		if other, ok := seen[v.Operator]; ok {
			result = multierror.Append(result, fmt.Errorf("validators %s and %s share operator %s: %w", other, v.Name, v.Operator, ErrInvalidConfig))
		}
		seen[v.Operator] = v.Name
	}
	if r := cfg.retryConfig(); r != nil && r.Multiplier != 0 && r.Multiplier < 1 {
		result = multierror.Append(result, fmt.Errorf("retry multiplier %v is below 1: %w", r.Multiplier, ErrInvalidConfig))
	}
	return result.ErrorOrNil()
}

func (cfg *Config) retryConfig() *RetryConfig {
	if cfg.Orchestrator == nil {
		return nil
	}
	return cfg.Orchestrator.Retry
}

func ReadConfig(blob []byte) (*Config, error) {
	cfg, err := readYamlConfig(blob)
	if err != nil {
		return nil, err
	}
	if err = cfg.init(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ReadConfigWithEnv(blob []byte) (*Config, error) {
	return ReadConfig([]byte(os.ExpandEnv(string(blob))))
}

func ReadConfigFromFile(path string) (*Config, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file %s: %w", path, err)
	}
	return ReadConfigWithEnv(blob)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
