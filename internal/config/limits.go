package config

const (
	MaxRequestBytes = 5 * 1024 * 1024 // 5MB
	MaxVerifyBytes  = 1 * 1024 * 1024 // 1MB
	MaxSources      = 32
	MaxSourceBytes  = 512 * 1024 // per source payload
)
