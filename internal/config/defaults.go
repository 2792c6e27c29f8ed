package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Session: SessionConfig{
			Backend:           "memory",
			DBPath:            "~/.opendialog/sessions.db",
			IdleTTLMinutes:    10,
			SweepIntervalSecs: 60,
		},
		Dialog: DialogConfig{
			MaxRetries:    3,
			RestartOnDeny: true,
			Concurrency:   4,
		},
		Skills: SkillsConfig{
			PromptDir: "~/.opendialog/prompts",
		},
		Channels: ChannelsConfig{
			CLI:      CLIConfig{Enabled: true},
			Telegram: TelegramConfig{Enabled: false},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9091",
		},
	}
}
