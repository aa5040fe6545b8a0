// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btclog"
	"github.com/btcsuite/psbtsigner/internal/db"
	"github.com/btcsuite/psbtsigner/keychain"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "psbtsigner.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "psbtsigner.log"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10
	defaultRedisAddr      = "localhost:6379"

	// passwordEnv names the environment variable holding the account
	// password. The password is prompted for when it is unset.
	passwordEnv = "PSBTSIGNER_PASSWORD"
)

var (
	defaultAppDataDir = btcutil.AppDataDir("psbtsigner", false)
	defaultConfigFile = filepath.Join(defaultAppDataDir,
		defaultConfigFilename)
	defaultLogDir = filepath.Join(defaultAppDataDir, defaultLogDirname)
)

// config holds the global options. Every option can also be set in the
// config file or, where an env tag is present, through the environment.
type config struct {
	AppDataDir  string `short:"A" long:"appdata" env:"PSBTSIGNER_APPDATA" description:"Application data directory holding the database files"`
	ConfigFile  string `short:"C" long:"configfile" env:"PSBTSIGNER_CONFIGFILE" description:"Path to configuration file"`
	DBBackend   string `long:"dbbackend" env:"PSBTSIGNER_DBBACKEND" description:"Storage backend" choice:"bdb" choice:"sqlite" choice:"postgres" choice:"redis" choice:"memory"`
	PostgresDSN string `long:"pg.dsn" env:"PSBTSIGNER_PG_DSN" description:"PostgreSQL connection string for the postgres backend"`

	RedisAddr     string `long:"redis.addr" env:"PSBTSIGNER_REDIS_ADDR" description:"Redis address for the redis backend"`
	RedisPassword string `long:"redis.password" env:"PSBTSIGNER_REDIS_PASSWORD" description:"Redis password" default-mask:"-"`
	RedisDB       int    `long:"redis.db" env:"PSBTSIGNER_REDIS_DB" description:"Redis database number"`

	Network string `long:"network" env:"PSBTSIGNER_NETWORK" description:"Bitcoin network, overriding the saved setting {bitcoin, testnet, signet, regtest}"`

	// Password is only taken from the environment, never from the
	// command line or the config file.
	Password string

	DebugLevel     string `short:"d" long:"debuglevel" env:"PSBTSIGNER_DEBUGLEVEL" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	LogDir         string `long:"logdir" env:"PSBTSIGNER_LOGDIR" description:"Directory to log output"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
}

// defaultConfig returns a config populated with the default values.
func defaultConfig() *config {
	return &config{
		AppDataDir:     defaultAppDataDir,
		ConfigFile:     defaultConfigFile,
		DBBackend:      db.BackendBolt,
		RedisAddr:      defaultRedisAddr,
		DebugLevel:     defaultLogLevel,
		LogDir:         defaultLogDir,
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultAppDataDir)
		if home, err := os.UserHomeDir(); err == nil {
			homeDir = home
		}
		path = strings.Replace(path, "~", homeDir, 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") &&
		!strings.Contains(debugLevel, "=") {

		if !validLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", debugLevel)
		}

		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return fmt.Errorf("the specified debug level contains "+
				"an invalid subsystem/level pair [%v]",
				logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := subsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is "+
				"invalid -- supported subsystems %v", subsysID,
				supportedSubsystems())
		}

		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// network returns the network selected on the command line, if any.
func (c *config) network() (keychain.Network, bool, error) {
	if c.Network == "" {
		return 0, false, nil
	}

	net, err := keychain.ParseNetwork(c.Network)
	if err != nil {
		return 0, false, err
	}

	return net, true, nil
}

// dbConfig returns the backend configuration.
func (c *config) dbConfig() db.Config {
	return db.Config{
		Backend:     c.DBBackend,
		DataDir:     c.AppDataDir,
		Timeout:     db.DefaultTimeout,
		PostgresDSN: c.PostgresDSN,
		Redis: db.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		},
	}
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// commands registers the subcommands on the parser; the selected command
// runs as part of the final parse.
func loadConfig(cfg *config, commands func(*flags.Parser) error,
	args []string) error {

	// Pre-parse the command line options to see if an alternative config
	// file was specified.
	preCfg := *cfg
	preParser := flags.NewParser(
		&preCfg, flags.HelpFlag|flags.PassDoubleDash|flags.IgnoreUnknown,
	)
	if _, err := preParser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) &&
			flagsErr.Type == flags.ErrHelp {

			// The full parser prints the help below.
		} else {
			return err
		}
	}

	parser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)
	if err := commands(parser); err != nil {
		return err
	}

	// A missing config file is not an error.
	configFile := cleanAndExpandPath(preCfg.ConfigFile)
	err := flags.NewIniParser(parser).ParseFile(configFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	// Parse command line options again to ensure they take precedence,
	// then run the selected command.
	_, err = parser.ParseArgs(args)

	return err
}
