package config

import (
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/forgeflow-zz/alephone/internal/utils"
	"github.com/forgeflow-zz/alephone/pkg/audiomanager"
	"github.com/forgeflow-zz/alephone/pkg/format"
)

func setViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")
	viper.SetDefault("samplerate", 44100)
	viper.SetDefault("stereo", true)
	viper.SetDefault("sourcecount", 32)
	viper.SetDefault("bufferframes", 1024)
	viper.SetDefault("volume", 1.0)
	viper.SetDefault("musicvolume", 1.0)
	viper.SetDefault("balancerewind", true)
}

func LoadConfig(configFilePath string) {
	setViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("no config file found", "configFilePath", configFilePath)
		} else if os.IsNotExist(err) {
			slog.Info("no config file found", "configFilePath", configFilePath)
		} else {
			slog.Error("error during config read", "err", err)
			panic(err)
		}
	}
}

// ConfigureLogger points slog at the configured level and log file.
func ConfigureLogger() *os.File {
	logFilePointer, err := utils.ConfigureDefaultLogger(
		viper.GetString("loglevel"),
		viper.GetString("logfile"),
		slog.HandlerOptions{},
	)
	if err != nil {
		slog.Error("error while configuring logger", "err", err)
		panic(err)
	}
	return logFilePointer
}

// ManagerConfig builds the audio manager settings from the loaded config.
func ManagerConfig() audiomanager.Config {
	return audiomanager.Config{
		Format: format.AudioFormat{
			SampleRate: viper.GetInt("samplerate"),
			Stereo:     viper.GetBool("stereo"),
			SixteenBit: true,
		},
		SourceCount:   viper.GetInt("sourcecount"),
		BufferFrames:  viper.GetInt("bufferframes"),
		Volume:        float32(viper.GetFloat64("volume")),
		BalanceRewind: viper.GetBool("balancerewind"),
	}
}
