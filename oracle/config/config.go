package config

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pelletier/go-toml/v2"

	"github.com/switchboard-xyz/solana-randomness-go/oracle/log"
)

var home = flag.String("home", homeDir(), "randomness daemon home directory")

var (
	globalConfig configData
	mu           sync.Mutex
	payerKey     solana.PrivateKey
	payerOnce    sync.Once
)

type configData struct {
	Cluster  clusterConfig  `toml:"cluster"`
	Key      keyConfig      `toml:"key"`
	Budget   budgetConfig   `toml:"budget"`
	Callback callbackConfig `toml:"callback"`
	Jobs     []JobConfig    `toml:"jobs"`
}

type clusterConfig struct {
	RPCEndpoint string `toml:"rpc_endpoint"`
	WSEndpoint  string `toml:"ws_endpoint"`
	Commitment  string `toml:"commitment"`
}

type keyConfig struct {
	PayerPath string `toml:"payer_path"`
}

type budgetConfig struct {
	ComputeUnits     uint32 `toml:"compute_units"`
	ComputeUnitPrice uint64 `toml:"compute_unit_price"`
}

type callbackConfig struct {
	Program       string `toml:"program"`
	Discriminator string `toml:"discriminator"`
}

// JobConfig describes one scheduled randomness request the daemon keeps alive.
type JobConfig struct {
	Label         string `toml:"label"`
	NumBytes      uint8  `toml:"num_bytes"`
	PeriodSeconds uint64 `toml:"period_seconds"`
}

func Load() {
	flag.Parse()
	path := filepath.Join(Home(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefaultConfig(path); err != nil {
			log.Fatalf("Failed to create default config: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	if err := toml.Unmarshal(data, &globalConfig); err != nil {
		log.Fatalf("Failed to parse TOML: %v", err)
	}

	if err := validateConfig(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Infof("Loaded config from %s", path)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get user home directory: %v", err)
	}

	return filepath.Join(home, ".randomnessd")
}

func createDefaultConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	globalConfig = configData{
		Cluster: clusterConfig{
			RPCEndpoint: "http://localhost:8899",
			WSEndpoint:  "ws://localhost:8900",
			Commitment:  "confirmed",
		},
		Key: keyConfig{
			PayerPath: filepath.Join(Home(), "payer.json"),
		},
		Budget: budgetConfig{
			ComputeUnits:     200_000,
			ComputeUnitPrice: 1,
		},
		Callback: callbackConfig{
			Program:       "",
			Discriminator: "bed931a2631a49ea",
		},
		Jobs: []JobConfig{
			{Label: "default", NumBytes: 8, PeriodSeconds: 60},
		},
	}

	data, err := toml.Marshal(globalConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal TOML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validateConfig() error {
	if globalConfig.Cluster.RPCEndpoint == "" {
		return fmt.Errorf("cluster rpc endpoint is required")
	}

	if globalConfig.Cluster.WSEndpoint == "" {
		return fmt.Errorf("cluster ws endpoint is required")
	}

	if globalConfig.Key.PayerPath == "" {
		return fmt.Errorf("payer keypair path is required")
	}

	if globalConfig.Callback.Program != "" {
		if _, err := solana.PublicKeyFromBase58(globalConfig.Callback.Program); err != nil {
			return fmt.Errorf("invalid callback program: %w", err)
		}
	}

	if globalConfig.Callback.Discriminator != "" {
		raw, err := hex.DecodeString(globalConfig.Callback.Discriminator)
		if err != nil {
			return fmt.Errorf("invalid callback discriminator: %w", err)
		}
		if len(raw) != 8 {
			return fmt.Errorf("callback discriminator must be 8 bytes, got %d", len(raw))
		}
	}

	for _, job := range globalConfig.Jobs {
		if job.NumBytes == 0 || job.NumBytes > 32 {
			return fmt.Errorf("job %q: num_bytes must be between 1 and 32", job.Label)
		}
		if job.PeriodSeconds == 0 {
			return fmt.Errorf("job %q: period_seconds is required", job.Label)
		}
	}

	return nil
}

func Print() {
	log.Infof("%-15s: %s", "Home", Home())
	log.Infof("%-15s: %s", "RPC Endpoint", RPCEndpoint())
	log.Infof("%-15s: %s", "WS Endpoint", WSEndpoint())
	log.Infof("%-15s: %s", "Commitment", Commitment())
	log.Infof("%-15s: %s", "Payer Path", PayerPath())
	log.Infof("%-15s: %s", "Address", Address().String())
	log.Infof("%-15s: %d", "Compute Units", ComputeUnits())
	log.Infof("%-15s: %d", "Unit Price", ComputeUnitPrice())
	log.Infof("%-15s: %d", "Jobs", len(Jobs()))
}

func Home() string {
	return *home
}

func RPCEndpoint() string {
	return globalConfig.Cluster.RPCEndpoint
}

func WSEndpoint() string {
	return globalConfig.Cluster.WSEndpoint
}

func Commitment() rpc.CommitmentType {
	switch globalConfig.Cluster.Commitment {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

func PayerPath() string {
	return globalConfig.Key.PayerPath
}

func Payer() solana.PrivateKey {
	if payerKey != nil {
		return payerKey
	}

	payerOnce.Do(func() {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(PayerPath())
		if err != nil {
			log.Fatalf("Failed to load payer keypair: %v", err)
		}
		payerKey = key
	})

	return payerKey
}

func Address() solana.PublicKey {
	return Payer().PublicKey()
}

func ComputeUnits() uint32 {
	return globalConfig.Budget.ComputeUnits
}

func ComputeUnitPrice() uint64 {
	mu.Lock()
	defer mu.Unlock()

	return globalConfig.Budget.ComputeUnitPrice
}

// SetComputeUnitPrice adjusts the priority fee applied to request
// transactions, e.g. when the cluster is congested.
func SetComputeUnitPrice(price uint64) {
	mu.Lock()
	defer mu.Unlock()

	globalConfig.Budget.ComputeUnitPrice = price
}

// CallbackProgram returns the program invoked by the service on settlement.
// A zero key means requests are submitted without a consumer callback target
// and the daemon only records the settled randomness.
func CallbackProgram() solana.PublicKey {
	if globalConfig.Callback.Program == "" {
		return solana.PublicKey{}
	}

	return solana.MustPublicKeyFromBase58(globalConfig.Callback.Program)
}

// CallbackDiscriminator returns the 8-byte instruction discriminator the
// oracle prefixes to the randomness bytes when invoking the callback.
func CallbackDiscriminator() []byte {
	raw, err := hex.DecodeString(globalConfig.Callback.Discriminator)
	if err != nil || len(raw) != 8 {
		// Validated at load time; reachable only through SetForTesting misuse.
		log.Fatalf("Invalid callback discriminator: %s", globalConfig.Callback.Discriminator)
	}

	return raw
}

func Jobs() []JobConfig {
	jobs := make([]JobConfig, len(globalConfig.Jobs))
	copy(jobs, globalConfig.Jobs)

	return jobs
}

func ChannelSize() int {
	return 1 << 10
}

func SetForTesting(rpcEndpoint, wsEndpoint, commitment, callbackProgram string, payer solana.PrivateKey, jobs []JobConfig) {
	globalConfig = configData{
		Cluster: clusterConfig{
			RPCEndpoint: rpcEndpoint,
			WSEndpoint:  wsEndpoint,
			Commitment:  commitment,
		},
		Key: keyConfig{
			PayerPath: "",
		},
		Budget: budgetConfig{
			ComputeUnits:     200_000,
			ComputeUnitPrice: 1,
		},
		Callback: callbackConfig{
			Program:       callbackProgram,
			Discriminator: "bed931a2631a49ea",
		},
		Jobs: jobs,
	}

	payerKey = payer
	payerOnce = sync.Once{}
}
