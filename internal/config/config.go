package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/application"
	"github.com/Bhanu-Sai-Enamala/bitICP/internal/core/ports"
	"github.com/Bhanu-Sai-Enamala/bitICP/internal/infrastructure/db"
	inmemorylivestore "github.com/Bhanu-Sai-Enamala/bitICP/internal/infrastructure/live-store/inmemory"
	"github.com/Bhanu-Sai-Enamala/bitICP/internal/infrastructure/oracle/xrc"
	psbtbackend "github.com/Bhanu-Sai-Enamala/bitICP/internal/infrastructure/psbt-backend"
	esplorascanner "github.com/Bhanu-Sai-Enamala/bitICP/internal/infrastructure/scanner/esplora"
	timescheduler "github.com/Bhanu-Sai-Enamala/bitICP/internal/infrastructure/scheduler/gocron"
	"github.com/Bhanu-Sai-Enamala/bitICP/internal/infrastructure/signer/httpschnorr"
	"github.com/Bhanu-Sai-Enamala/bitICP/pkg/vaultscript"
)

var (
	supportedDbs = supportedType{
		"badger": {},
	}
	supportedLiveStores = supportedType{
		"inmemory": {},
	}
	supportedNetworks = supportedType{
		"mainnet": {},
		"testnet": {},
		"regtest": {},
	}
)

type Config struct {
	Datadir  string
	Port     uint32
	LogLevel int
	Network  string

	DbType        string
	DbDir         string
	LiveStoreType string

	EsploraURL    string
	SignerURL     string
	SignerKeyName string
	OracleURL     string
	BackendURL    string
	BackendAPIKey string
	BackendWallet string

	GuardianInternalKey string
	GuardianQuorumKeyA  string
	GuardianQuorumKeyB  string

	CollateralRatioBps  uint32
	CollateralUsdCents  uint64
	FallbackBtcPriceUsd float64
	MintTokens          uint64
	MintUsdCents        uint64
	MinConfirmations    uint32
	PollInterval        time.Duration

	FeeRecipientAddress string
	FeeRecipientSats    uint64
	OrdinalsSats        uint64
	RuneOpReturnHex     string

	repo      ports.RepoManager
	svc       application.Service
	signer    ports.SchnorrSigner
	oracle    ports.RateSource
	backend   ports.PsbtBackend
	scanner   ports.BlockchainScanner
	liveStore ports.LiveStore
	scheduler ports.SchedulerService
	network   vaultscript.Network
	guardians application.GuardianKeys
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir             = "DATADIR"
	Port                = "PORT"
	LogLevel            = "LOG_LEVEL"
	Network             = "NETWORK"
	DbType              = "DB_TYPE"
	LiveStoreType       = "LIVE_STORE_TYPE"
	EsploraURL          = "ESPLORA_URL"
	SignerURL           = "SIGNER_URL"
	SignerKeyName       = "SIGNER_KEY_NAME"
	OracleURL           = "ORACLE_URL"
	BackendURL          = "BACKEND_URL"
	BackendAPIKey       = "BACKEND_API_KEY"
	BackendWallet       = "BACKEND_WALLET"
	GuardianInternalKey = "GUARDIAN_INTERNAL_KEY"
	GuardianQuorumKeyA  = "GUARDIAN_QUORUM_KEY_A"
	GuardianQuorumKeyB  = "GUARDIAN_QUORUM_KEY_B"
	CollateralRatioBps  = "COLLATERAL_RATIO_BPS"
	CollateralUsdCents  = "COLLATERAL_USD_CENTS"
	FallbackBtcPriceUsd = "FALLBACK_BTC_PRICE_USD"
	MintTokens          = "MINT_TOKENS"
	MintUsdCents        = "MINT_USD_CENTS"
	MinConfirmations    = "MIN_CONFIRMATIONS"
	PollInterval        = "POLL_INTERVAL"
	FeeRecipientAddress = "FEE_RECIPIENT_ADDRESS"
	FeeRecipientSats    = "FEE_RECIPIENT_SATS"
	OrdinalsSats        = "ORDINALS_SATS"
	RuneOpReturnHex     = "RUNE_OP_RETURN_HEX"

	defaultDatadir       = "./data"
	DefaultPort          = 7171
	defaultLogLevel      = 4
	defaultNetwork       = "testnet"
	defaultDbType        = "badger"
	defaultLiveStoreType = "inmemory"
	defaultEsploraURL    = "https://blockstream.info/testnet/api"
	defaultSignerKeyName = "dfx_test_key"
	defaultBackendWallet = "vaultd"

	defaultCollateralRatioBps  = 13000
	defaultCollateralUsdCents  = 2000
	defaultFallbackBtcPriceUsd = 100734.10
	defaultMintTokens          = 10
	defaultMintUsdCents        = 1000
	defaultMinConfirmations    = 6
	defaultPollInterval        = time.Minute

	defaultGuardianInternalKey = "03b24f7ae21c41df53bb95f138440c1b396404f1da2aa824821720d223685ed7f1"
	defaultGuardianQuorumKeyA  = "0265f4ca4c628565963028803861eef79ff19f49223822e9bdfc49532148e79363"
	defaultGuardianQuorumKeyB  = "03cb4d09e437d2a3497d6507fe62f66f668c9c647d4ea9ffb02c8845c5c53ce663"
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("VAULTD")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Port, DefaultPort)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(Network, defaultNetwork)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(LiveStoreType, defaultLiveStoreType)
	viper.SetDefault(EsploraURL, defaultEsploraURL)
	viper.SetDefault(SignerKeyName, defaultSignerKeyName)
	viper.SetDefault(BackendWallet, defaultBackendWallet)
	viper.SetDefault(GuardianInternalKey, defaultGuardianInternalKey)
	viper.SetDefault(GuardianQuorumKeyA, defaultGuardianQuorumKeyA)
	viper.SetDefault(GuardianQuorumKeyB, defaultGuardianQuorumKeyB)
	viper.SetDefault(CollateralRatioBps, defaultCollateralRatioBps)
	viper.SetDefault(CollateralUsdCents, defaultCollateralUsdCents)
	viper.SetDefault(FallbackBtcPriceUsd, defaultFallbackBtcPriceUsd)
	viper.SetDefault(MintTokens, defaultMintTokens)
	viper.SetDefault(MintUsdCents, defaultMintUsdCents)
	viper.SetDefault(MinConfirmations, defaultMinConfirmations)
	viper.SetDefault(PollInterval, defaultPollInterval)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	return &Config{
		Datadir:             viper.GetString(Datadir),
		Port:                viper.GetUint32(Port),
		LogLevel:            viper.GetInt(LogLevel),
		Network:             viper.GetString(Network),
		DbType:              viper.GetString(DbType),
		DbDir:               filepath.Join(viper.GetString(Datadir), "db"),
		LiveStoreType:       viper.GetString(LiveStoreType),
		EsploraURL:          viper.GetString(EsploraURL),
		SignerURL:           viper.GetString(SignerURL),
		SignerKeyName:       viper.GetString(SignerKeyName),
		OracleURL:           viper.GetString(OracleURL),
		BackendURL:          viper.GetString(BackendURL),
		BackendAPIKey:       viper.GetString(BackendAPIKey),
		BackendWallet:       viper.GetString(BackendWallet),
		GuardianInternalKey: viper.GetString(GuardianInternalKey),
		GuardianQuorumKeyA:  viper.GetString(GuardianQuorumKeyA),
		GuardianQuorumKeyB:  viper.GetString(GuardianQuorumKeyB),
		CollateralRatioBps:  viper.GetUint32(CollateralRatioBps),
		CollateralUsdCents:  viper.GetUint64(CollateralUsdCents),
		FallbackBtcPriceUsd: viper.GetFloat64(FallbackBtcPriceUsd),
		MintTokens:          viper.GetUint64(MintTokens),
		MintUsdCents:        viper.GetUint64(MintUsdCents),
		MinConfirmations:    viper.GetUint32(MinConfirmations),
		PollInterval:        viper.GetDuration(PollInterval),
		FeeRecipientAddress: viper.GetString(FeeRecipientAddress),
		FeeRecipientSats:    viper.GetUint64(FeeRecipientSats),
		OrdinalsSats:        viper.GetUint64(OrdinalsSats),
		RuneOpReturnHex:     viper.GetString(RuneOpReturnHex),
	}, nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func (c *Config) Validate() error {
	if !supportedNetworks.supports(c.Network) {
		return fmt.Errorf("network not supported, please select one of: %s", supportedNetworks)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedLiveStores.supports(c.LiveStoreType) {
		return fmt.Errorf("live store type not supported, please select one of: %s", supportedLiveStores)
	}
	if c.SignerURL == "" {
		return fmt.Errorf("signer url not set")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("backend url not set")
	}
	if c.CollateralRatioBps == 0 {
		return fmt.Errorf("collateral ratio must be greater than 0")
	}
	if c.CollateralUsdCents == 0 {
		return fmt.Errorf("collateral usd amount must be greater than 0")
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("invalid poll interval, must be at least 1 second")
	}

	network, err := vaultscript.NetworkFromName(c.Network)
	if err != nil {
		return err
	}
	c.network = network

	guardians, err := c.guardianKeys()
	if err != nil {
		return err
	}
	c.guardians = guardians

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.signerService(); err != nil {
		return err
	}
	if err := c.oracleService(); err != nil {
		return err
	}
	if err := c.backendService(); err != nil {
		return err
	}
	if err := c.scannerService(); err != nil {
		return err
	}
	if err := c.liveStoreService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) RepoManager() ports.RepoManager {
	return c.repo
}

func (c *Config) guardianKeys() (application.GuardianKeys, error) {
	internalKey, err := vaultscript.ParseComponentKey(c.GuardianInternalKey)
	if err != nil {
		return application.GuardianKeys{}, fmt.Errorf("guardian internal key: %w", err)
	}
	quorumKeyA, err := vaultscript.ParseComponentKey(c.GuardianQuorumKeyA)
	if err != nil {
		return application.GuardianKeys{}, fmt.Errorf("guardian quorum key a: %w", err)
	}
	quorumKeyB, err := vaultscript.ParseComponentKey(c.GuardianQuorumKeyB)
	if err != nil {
		return application.GuardianKeys{}, fmt.Errorf("guardian quorum key b: %w", err)
	}
	return application.GuardianKeys{
		InternalKey: internalKey,
		QuorumKeyA:  quorumKeyA,
		QuorumKeyB:  quorumKeyB,
	}, nil
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) signerService() error {
	svc, err := httpschnorr.NewService(c.SignerURL, c.SignerKeyName)
	if err != nil {
		return err
	}
	c.signer = svc
	return nil
}

func (c *Config) oracleService() error {
	if c.OracleURL == "" {
		log.Warn("oracle url not set, collateral sizing falls back to the configured price")
		c.oracle = xrc.NewUnavailable()
		return nil
	}
	svc, err := xrc.NewService(c.OracleURL)
	if err != nil {
		return err
	}
	c.oracle = svc
	return nil
}

func (c *Config) backendService() error {
	svc, err := psbtbackend.NewService(c.BackendURL, c.BackendAPIKey, c.BackendWallet)
	if err != nil {
		return err
	}
	c.backend = svc
	return nil
}

func (c *Config) scannerService() error {
	svc, err := esplorascanner.NewService(c.EsploraURL)
	if err != nil {
		return err
	}
	c.scanner = svc
	return nil
}

func (c *Config) liveStoreService() error {
	switch c.LiveStoreType {
	case "inmemory":
		c.liveStore = inmemorylivestore.NewLiveStore()
	default:
		return fmt.Errorf("unknown live store type")
	}
	return nil
}

func (c *Config) schedulerService() error {
	c.scheduler = timescheduler.NewScheduler()
	return nil
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		c.network,
		c.guardians,
		application.CollateralParams{
			RatioBps: c.CollateralRatioBps,
			UsdCents: c.CollateralUsdCents,
		},
		application.FeeConfig{
			OrdinalsSats:        c.OrdinalsSats,
			FeeRecipientSats:    c.FeeRecipientSats,
			FeeRecipientAddress: c.FeeRecipientAddress,
			RuneOpReturnHex:     c.RuneOpReturnHex,
		},
		c.FallbackBtcPriceUsd,
		c.MintTokens, c.MintUsdCents,
		c.MinConfirmations,
		c.PollInterval,
		c.signer, c.oracle, c.backend, c.scanner, c.liveStore, c.repo, c.scheduler,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
