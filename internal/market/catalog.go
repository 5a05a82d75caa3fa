package market

// DefaultCatalog is the instrument set a new game starts with.
func DefaultCatalog() []Definition {
	return []Definition{
		{Symbol: "COBOLT", Name: "Cobalt Dynamics", Category: CategoryStock, Risk: RiskHigh, AnnualRate: 0.12, BasePrice: 130},
		{Symbol: "NIMBUS", Name: "Nimbus Labs", Category: CategoryStock, Risk: RiskMedium, AnnualRate: 0.09, BasePrice: 95},
		{Symbol: "RUSTIC", Name: "Rustic Systems", Category: CategoryStock, Risk: RiskLow, AnnualRate: 0.06, BasePrice: 115},
		{Symbol: "ORBITZ", Name: "Orbitz Space", Category: CategoryStock, Risk: RiskHigh, AnnualRate: 0.15, BasePrice: 180},
		{Symbol: "LUMINA", Name: "Lumina Health", Category: CategoryStock, Risk: RiskMedium, AnnualRate: 0.08, BasePrice: 102},
		{Symbol: "TOTAL", Name: "Total Market Index", Category: CategoryETF, Risk: RiskLow, AnnualRate: 0.07, BasePrice: 250},
		{Symbol: "TECHX", Name: "Tech Growth ETF", Category: CategoryETF, Risk: RiskMedium, AnnualRate: 0.10, BasePrice: 140},
		{Symbol: "FRONT", Name: "Frontier Markets ETF", Category: CategoryETF, Risk: RiskHigh, AnnualRate: 0.11, BasePrice: 60},
		{Symbol: "MUNI", Name: "City Municipal Bond", Category: CategoryBond, Risk: RiskLow, AnnualRate: 0.035, BasePrice: 100},
		{Symbol: "CORP", Name: "Corporate Bond Fund", Category: CategoryBond, Risk: RiskMedium, AnnualRate: 0.05, BasePrice: 100},
		{Symbol: "TBILL", Name: "52-Week Treasury Bill", Category: CategoryTBill, Risk: RiskLow, AnnualRate: 0.045, BasePrice: 100},
	}
}
