package config

// Defaults returns a config holding every default value. Load decodes the
// YAML file on top of it, so a key set to zero in the file stays zero.
func Defaults() *Config {
	return &Config{
		Economy: EconomyConfig{
			StartMoney: DefaultStartMoney,
			MaxGoods:   DefaultMaxGoods,
			Decimals:   DefaultDecimals,
		},
		Trials: TrialsConfig{
			Blocks:       DefaultBlocks,
			PerBlock:     DefaultTrials,
			QtyMax:       DefaultQtyMax,
			QtyBase:      DefaultQtyBase,
			QtySpread:    DefaultQtySpread,
			PriceMultMin: DefaultPriceMultMin,
			PriceMultMax: DefaultPriceMultMax,
		},
		Clock: ClockConfig{
			PriceSteps:        DefaultPriceSteps,
			PriceStepDuration: DefaultPriceStepDuration,
			StartDelay:        DefaultStartDelay,
			DelayBefore:       DefaultDelayBefore,
			DelayAfter:        DefaultDelayAfter,
		},
		Pool: PoolConfig{
			Names:        append([]string(nil), DefaultNames...),
			OpponentName: DefaultOpponentName,
		},
		Server: ServerConfig{
			Port:      DefaultPort,
			StaticDir: DefaultStaticDir,
			IndexFile: DefaultIndexFile,
			DataDir:   DefaultDataDir,
			Keyboard:  true,
		},
		// empty DatabaseURL / MongoURI disable those mirrors
		Storage: StorageConfig{
			MongoDB: DefaultMongoDB,
		},
	}
}

// IsDevelopment reports whether the console logger should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}
