package challenge

// Presets are the named challenge configurations shipped with the
// simulator, modeled on common funded-account programs. They are data,
// not behavior: any Config passing Validate works.
var Presets = map[string]Config{
	"FTMO_50K": {
		Name:                "FTMO Style $50K",
		InitialBalance:      50000,
		ProfitTargetPct:     0.10,
		MaxDailyDrawdownPct: 0.05,
		MaxTotalDrawdownPct: 0.10,
		TimeLimitDays:       30,
		MinTradingDays:      4,
	},
	"FTMO_100K": {
		Name:                "FTMO Style $100K",
		InitialBalance:      100000,
		ProfitTargetPct:     0.10,
		MaxDailyDrawdownPct: 0.05,
		MaxTotalDrawdownPct: 0.10,
		TimeLimitDays:       30,
		MinTradingDays:      4,
	},
	"BLUEGUARDIAN_5K": {
		Name:                "BlueGuardian Style $5K Instant",
		InitialBalance:      5000,
		ProfitTargetPct:     0.08,
		MaxDailyDrawdownPct: 0.05,
		MaxTotalDrawdownPct: 0.10,
		TimeLimitDays:       0,
		MinTradingDays:      0,
	},
	"BLUEGUARDIAN_100K": {
		Name:                "BlueGuardian Style $100K",
		InitialBalance:      100000,
		ProfitTargetPct:     0.08,
		MaxDailyDrawdownPct: 0.05,
		MaxTotalDrawdownPct: 0.10,
		TimeLimitDays:       45,
		MinTradingDays:      3,
	},
}

// PresetNames returns the preset keys in deterministic order.
func PresetNames() []string {
	return []string{"FTMO_50K", "FTMO_100K", "BLUEGUARDIAN_5K", "BLUEGUARDIAN_100K"}
}
