package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ark-network/lottery/internal/core/application"
	"github.com/ark-network/lottery/internal/core/domain"
	"github.com/ark-network/lottery/internal/core/ports"
	"github.com/ark-network/lottery/internal/infrastructure/db"
	randomentropy "github.com/ark-network/lottery/internal/infrastructure/entropy/random"
	badgerledger "github.com/ark-network/lottery/internal/infrastructure/ledger/badger"
	inmemoryledger "github.com/ark-network/lottery/internal/infrastructure/ledger/inmemory"
	timescheduler "github.com/ark-network/lottery/internal/infrastructure/scheduler/gocron"
	"github.com/coder/quartz"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	supportedEventDbs = supportedType{
		"badger": {},
	}
	supportedDbs = supportedType{
		"badger": {},
		"sqlite": {},
	}
	supportedLedgers = supportedType{
		"inmemory": {},
		"badger":   {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}
)

type Config struct {
	Datadir            string
	Port               uint32
	LogLevel           int
	CORSAllowedOrigins []string

	EventDbType   string
	DbType        string
	LedgerType    string
	SchedulerType string
	DbDir         string
	EventDbDir    string
	LedgerDir     string
	GCInterval    int64

	OwnerAddress             string
	CustodyAddress           string
	EntryValue               uint64
	MaxParticipants          int
	RoundDuration            time.Duration
	RoundCooldown            time.Duration
	OwnerFeePercent          string
	InitializerRewardPercent string
	FinalizerRewardPercent   string
	FaucetEnabled            bool

	repo      ports.RepoManager
	ledger    ports.Ledger
	entropy   ports.EntropyProvider
	scheduler ports.SchedulerService
	svc       application.Service
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir                  = "DATADIR"
	Port                     = "PORT"
	LogLevel                 = "LOG_LEVEL"
	CORSAllowedOrigins       = "CORS_ALLOWED_ORIGINS"
	EventDbType              = "EVENT_DB_TYPE"
	DbType                   = "DB_TYPE"
	LedgerType               = "LEDGER_TYPE"
	SchedulerType            = "SCHEDULER_TYPE"
	GCInterval               = "GC_INTERVAL"
	OwnerAddress             = "OWNER_ADDRESS"
	CustodyAddress           = "CUSTODY_ADDRESS"
	EntryValue               = "ENTRY_VALUE"
	MaxParticipants          = "MAX_PARTICIPANTS"
	RoundDuration            = "ROUND_DURATION"
	RoundCooldown            = "ROUND_COOLDOWN"
	OwnerFeePercent          = "OWNER_FEE_PERCENT"
	InitializerRewardPercent = "INITIALIZER_REWARD_PERCENT"
	FinalizerRewardPercent   = "FINALIZER_REWARD_PERCENT"
	FaucetEnabled            = "FAUCET_ENABLED"

	defaultDatadir                  = appDataDir("lotteryd")
	DefaultPort                     = 7080
	defaultLogLevel                 = 4
	defaultEventDbType              = "badger"
	defaultDbType                   = "sqlite"
	defaultLedgerType               = "badger"
	defaultSchedulerType            = "gocron"
	defaultGCInterval               = 300 // 5 minutes
	defaultEntryValue               = 1_000_000_000_000_000 // 0.001 ether in wei
	defaultMaxParticipants          = domain.DefaultMaxParticipants
	defaultRoundDuration            = domain.DefaultRoundDuration
	defaultRoundCooldown            = domain.DefaultRoundCooldown
	defaultOwnerFeePercent          = "1"
	defaultInitializerRewardPercent = "0.5"
	defaultFinalizerRewardPercent   = "0.5"
	defaultFaucetEnabled            = false
)

func LoadConfig() (*Config, error) {
	// A .env file in the working directory is optional.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %s", err)
	}

	viper.SetEnvPrefix("LOTTERY")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Port, DefaultPort)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(EventDbType, defaultEventDbType)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(LedgerType, defaultLedgerType)
	viper.SetDefault(SchedulerType, defaultSchedulerType)
	viper.SetDefault(GCInterval, defaultGCInterval)
	viper.SetDefault(EntryValue, defaultEntryValue)
	viper.SetDefault(MaxParticipants, defaultMaxParticipants)
	viper.SetDefault(RoundDuration, defaultRoundDuration)
	viper.SetDefault(RoundCooldown, defaultRoundCooldown)
	viper.SetDefault(OwnerFeePercent, defaultOwnerFeePercent)
	viper.SetDefault(InitializerRewardPercent, defaultInitializerRewardPercent)
	viper.SetDefault(FinalizerRewardPercent, defaultFinalizerRewardPercent)
	viper.SetDefault(FaucetEnabled, defaultFaucetEnabled)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	datadir := viper.GetString(Datadir)
	dbPath := filepath.Join(datadir, "db")

	return &Config{
		Datadir:                  datadir,
		Port:                     viper.GetUint32(Port),
		LogLevel:                 viper.GetInt(LogLevel),
		CORSAllowedOrigins:       splitList(viper.GetString(CORSAllowedOrigins)),
		EventDbType:              viper.GetString(EventDbType),
		DbType:                   viper.GetString(DbType),
		LedgerType:               viper.GetString(LedgerType),
		SchedulerType:            viper.GetString(SchedulerType),
		DbDir:                    dbPath,
		EventDbDir:               dbPath,
		LedgerDir:                dbPath,
		GCInterval:               viper.GetInt64(GCInterval),
		OwnerAddress:             viper.GetString(OwnerAddress),
		CustodyAddress:           viper.GetString(CustodyAddress),
		EntryValue:               viper.GetUint64(EntryValue),
		MaxParticipants:          viper.GetInt(MaxParticipants),
		RoundDuration:            viper.GetDuration(RoundDuration),
		RoundCooldown:            viper.GetDuration(RoundCooldown),
		OwnerFeePercent:          viper.GetString(OwnerFeePercent),
		InitializerRewardPercent: viper.GetString(InitializerRewardPercent),
		FinalizerRewardPercent:   viper.GetString(FinalizerRewardPercent),
		FaucetEnabled:            viper.GetBool(FaucetEnabled),
	}, nil
}

func (c *Config) Validate() error {
	if !supportedEventDbs.supports(c.EventDbType) {
		return fmt.Errorf("event db type not supported, please select one of: %s", supportedEventDbs)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedLedgers.supports(c.LedgerType) {
		return fmt.Errorf("ledger type not supported, please select one of: %s", supportedLedgers)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf("scheduler type not supported, please select one of: %s", supportedSchedulers)
	}
	if !common.IsHexAddress(c.OwnerAddress) {
		return fmt.Errorf("invalid or missing owner address")
	}
	if !common.IsHexAddress(c.CustodyAddress) {
		return fmt.Errorf("invalid or missing custody address")
	}
	if c.GCInterval < 0 {
		return fmt.Errorf("invalid gc interval, must not be negative")
	}
	if c.LedgerType == "inmemory" {
		log.Warn(
			"in-memory ledger is not persisted, restoring a round that holds " +
				"funds after a restart will halt the engine",
		)
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.ledgerService(); err != nil {
		return err
	}
	if err := c.entropyService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.appService(); err != nil {
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

func (c *Config) rules() (domain.Rules, error) {
	fees := domain.FeePolicy{}
	var err error
	if fees.OwnerFeePercent, err = decimal.NewFromString(c.OwnerFeePercent); err != nil {
		return domain.Rules{}, fmt.Errorf("invalid owner fee percent: %s", err)
	}
	if fees.InitializerRewardPercent, err = decimal.NewFromString(
		c.InitializerRewardPercent,
	); err != nil {
		return domain.Rules{}, fmt.Errorf("invalid initializer reward percent: %s", err)
	}
	if fees.FinalizerRewardPercent, err = decimal.NewFromString(
		c.FinalizerRewardPercent,
	); err != nil {
		return domain.Rules{}, fmt.Errorf("invalid finalizer reward percent: %s", err)
	}

	rules := domain.Rules{
		Owner:           common.HexToAddress(c.OwnerAddress),
		Custody:         common.HexToAddress(c.CustodyAddress),
		EntryValue:      c.EntryValue,
		MaxParticipants: c.MaxParticipants,
		RoundDuration:   c.RoundDuration,
		Cooldown:        c.RoundCooldown,
		Fees:            fees,
	}
	if err := rules.Validate(); err != nil {
		return domain.Rules{}, err
	}
	return rules, nil
}

func (c *Config) repoManager() error {
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.EventDbType {
	case "badger":
		eventStoreConfig = []interface{}{c.EventDbDir, logger}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) ledgerService() error {
	var svc ports.Ledger
	var err error
	switch c.LedgerType {
	case "inmemory":
		svc = inmemoryledger.NewLedger()
	case "badger":
		svc, err = badgerledger.NewLedger(c.LedgerDir, log.New())
	default:
		err = fmt.Errorf("unknown ledger type")
	}
	if err != nil {
		return err
	}

	c.ledger = svc
	return nil
}

func (c *Config) entropyService() error {
	c.entropy = randomentropy.NewProvider()
	return nil
}

func (c *Config) schedulerService() error {
	var svc ports.SchedulerService
	var err error
	switch c.SchedulerType {
	case "gocron":
		svc = timescheduler.NewScheduler()
	default:
		err = fmt.Errorf("unknown scheduler type")
	}
	if err != nil {
		return err
	}

	c.scheduler = svc
	return nil
}

func (c *Config) appService() error {
	rules, err := c.rules()
	if err != nil {
		return err
	}

	svc, err := application.NewService(
		application.Config{
			Rules:         rules,
			FaucetEnabled: c.FaucetEnabled,
			GCInterval:    c.GCInterval,
		},
		quartz.NewReal(), c.ledger, c.entropy, c.scheduler, c.repo,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
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

func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

func splitList(str string) []string {
	list := make([]string, 0)
	for _, s := range strings.Split(str, ",") {
		if s = strings.TrimSpace(s); len(s) > 0 {
			list = append(list, s)
		}
	}
	return list
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
