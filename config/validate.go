package config

import (
	"errors"
	"fmt"
)

// Validate checks that all values can drive an experiment.
func (c *Config) Validate() error {
	if c.Economy.StartMoney < 0 {
		return errors.New("economy.start_money must be >= 0")
	}
	if c.Economy.MaxGoods < 1 {
		return errors.New("economy.max_goods must be >= 1")
	}
	if c.Economy.Decimals < 0 || c.Economy.Decimals > 8 {
		return errors.New("economy.decimals must be between 0 and 8")
	}

	if c.Trials.Blocks < 1 {
		return errors.New("trials.blocks must be >= 1")
	}
	if c.Trials.PerBlock < 1 {
		return errors.New("trials.per_block must be >= 1")
	}
	if c.Trials.QtyMax < 1 {
		return errors.New("trials.qty_max must be >= 1")
	}
	if c.Trials.PriceMultMin <= 0 || c.Trials.PriceMultMax < c.Trials.PriceMultMin {
		return errors.New("trials.price_mult_min must be > 0 and <= trials.price_mult_max")
	}

	if c.Clock.PriceSteps < 1 {
		return errors.New("clock.price_steps must be >= 1")
	}
	if c.Clock.PriceStepDuration <= 0 {
		return errors.New("clock.price_step_duration must be > 0")
	}
	if c.Clock.StartDelay < 0 || c.Clock.DelayBefore < 0 || c.Clock.DelayAfter < 0 {
		return errors.New("clock delays must be >= 0")
	}

	seen := make(map[string]bool, len(c.Pool.Names))
	for _, name := range c.Pool.Names {
		if name == "" {
			return errors.New("pool.names must not contain empty names")
		}
		if seen[name] {
			return fmt.Errorf("pool.names contains duplicate %q", name)
		}
		seen[name] = true
	}
	if seen[c.Pool.OpponentName] {
		return fmt.Errorf("pool.opponent_name %q collides with a participant name", c.Pool.OpponentName)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}

	return nil
}
