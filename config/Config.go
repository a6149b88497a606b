package config

import "time"

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig    RedisStorageConfig
	HttpPort       int
	StorageType    StorageType
	BatchSize      int
	PollInterval   time.Duration
	IntakeCapacity int
	RetryConfig    RetryConfig
}

type RedisStorageConfig struct {
	Addrs      []string
	Namespace  string
	Partitions int
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}
