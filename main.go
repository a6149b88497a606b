package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/praxida/careflow/agent"
	"github.com/praxida/careflow/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "careflow", "namespace used in storage")
	cmd.Flags().Int("partitions", 4, "number of delay queue partitions")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().Int("batch-size", 100, "wakeup poll batch size")
	cmd.Flags().Duration("poll-interval", 1*time.Second, "wakeup poll interval")
	cmd.Flags().Int("intake-capacity", 512, "event intake queue capacity")
	cmd.Flags().Int("max-retries", 3, "max retry attempts per action")
	cmd.Flags().Duration("retry-base-delay", 30*time.Second, "first retry backoff")
	cmd.Flags().Duration("retry-max-delay", 10*time.Minute, "retry backoff cap")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.RedisConfig.Partitions = viper.GetInt("partitions")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.BatchSize = viper.GetInt("batch-size")
	c.cfg.PollInterval = viper.GetDuration("poll-interval")
	c.cfg.IntakeCapacity = viper.GetInt("intake-capacity")
	c.cfg.RetryConfig.MaxRetries = viper.GetInt("max-retries")
	c.cfg.RetryConfig.BaseDelay = viper.GetDuration("retry-base-delay")
	c.cfg.RetryConfig.MaxDelay = viper.GetDuration("retry-max-delay")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	var err error
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "careflow",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
