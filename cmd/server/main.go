package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/codecast/watchparty/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	secret = configVar[string]{
		envKey:       "SERVER_SECRET",
		flagKey:      "secret",
		defaultValue: "",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 5001,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 16,
	}
	joinGrace = configVar[int]{
		envKey:       "SERVER_JOIN_GRACE_SEC",
		flagKey:      "join-grace-sec",
		defaultValue: 30,
	}
	sendBuffer = configVar[int]{
		envKey:       "SERVER_SEND_BUFFER",
		flagKey:      "send-buffer",
		defaultValue: 64,
	}
	videoServiceURL = configVar[string]{
		envKey:       "VIDEO_SERVICE_URL",
		flagKey:      "video-service-url",
		defaultValue: "http://localhost:5000",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	videoCacheTTL = configVar[int]{
		envKey:       "VIDEO_CACHE_TTL_SEC",
		flagKey:      "video-cache-ttl-sec",
		defaultValue: 3600,
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, "Identity token secret")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of participants in a party")
	pflag.Int(joinGrace.flagKey, joinGrace.defaultValue, "Seconds a connection may wait before sending join")
	pflag.Int(sendBuffer.flagKey, sendBuffer.defaultValue, "Per-connection outbound queue size")
	pflag.String(videoServiceURL.flagKey, videoServiceURL.defaultValue, "Base URL of the video catalog service")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host (empty disables the video cache)")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Int(videoCacheTTL.flagKey, videoCacheTTL.defaultValue, "Video cache TTL in seconds")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(secret.flagKey, secret.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(membersLimit.flagKey, membersLimit.envKey)
	viper.BindEnv(joinGrace.flagKey, joinGrace.envKey)
	viper.BindEnv(sendBuffer.flagKey, sendBuffer.envKey)
	viper.BindEnv(videoServiceURL.flagKey, videoServiceURL.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(videoCacheTTL.flagKey, videoCacheTTL.envKey)

	viper.SetDefault(secret.flagKey, secret.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(membersLimit.flagKey, membersLimit.defaultValue)
	viper.SetDefault(joinGrace.flagKey, joinGrace.defaultValue)
	viper.SetDefault(sendBuffer.flagKey, sendBuffer.defaultValue)
	viper.SetDefault(videoServiceURL.flagKey, videoServiceURL.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(videoCacheTTL.flagKey, videoCacheTTL.defaultValue)

	return &app.AppConfig{
		Secret:          viper.GetString(secret.flagKey),
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		MembersLimit:    viper.GetInt(membersLimit.flagKey),
		JoinGraceSec:    viper.GetInt(joinGrace.flagKey),
		SendBuffer:      viper.GetInt(sendBuffer.flagKey),
		VideoServiceURL: viper.GetString(videoServiceURL.flagKey),
		RedisHost:       viper.GetString(redisHost.flagKey),
		RedisPort:       viper.GetInt(redisPort.flagKey),
		RedisPassword:   viper.GetString(redisPassword.flagKey),
		VideoCacheTTL:   viper.GetInt(videoCacheTTL.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
