package hostapi

import "context"

// AccountsGroup mirrors the accounts command surface.
type AccountsGroup struct {
	GetAll Func
	Create Func
	Update Func
}

// PortfolioGroup mirrors the portfolio command surface.
type PortfolioGroup struct {
	GetHoldings           Func
	GetHolding            Func
	Update                Func
	Recalculate           Func
	GetIncomeSummary      Func
	GetHistoricalValuations Func
	GetLatestValuations   Func
}

// ActivitiesGroup mirrors the activities command surface.
type ActivitiesGroup struct {
	GetAll            Func
	Search            Func
	Create            Func
	Update            Func
	SaveMany          Func
	Import            Func
	CheckImport       Func
	GetImportMapping  Func
	SaveImportMapping Func
}

// MarketGroup mirrors the market command surface.
type MarketGroup struct {
	SearchTicker Func
	SyncHistory  Func
	Sync         Func
	GetProviders Func
}

// AssetsGroup mirrors the assets command surface.
type AssetsGroup struct {
	GetProfile       Func
	UpdateProfile    Func
	UpdateDataSource Func
}

// QuotesGroup mirrors the quotes command surface.
type QuotesGroup struct {
	Update     Func
	GetHistory Func
}

// PerformanceGroup mirrors the performance command surface.
type PerformanceGroup struct {
	CalculateHistory        Func
	CalculateSummary        Func
	CalculateAccountsSimple Func
}

// ExchangeRatesGroup mirrors the exchangeRates command surface.
type ExchangeRatesGroup struct {
	GetAll Func
	Update Func
	Add    Func
}

// ContributionLimitsGroup mirrors the contributionLimits command surface.
type ContributionLimitsGroup struct {
	GetAll            Func
	Create            Func
	Update            Func
	CalculateDeposits Func
}

// GoalsGroup mirrors the goals command surface.
type GoalsGroup struct {
	GetAll            Func
	Create            Func
	Update            Func
	UpdateAllocations Func
	GetAllocations    Func
}

// SettingsGroup mirrors the settings command surface.
type SettingsGroup struct {
	Get            Func
	Update         Func
	BackupDatabase Func
}

// FilesGroup mirrors the files command surface.
type FilesGroup struct {
	OpenCsvDialog  Func
	OpenSaveDialog Func
}

// QueryGroup mirrors the query-cache command surface.
type QueryGroup struct {
	GetClient        Func
	InvalidateQueries Func
	RefetchQueries   Func
}

// NavigationGroup exposes the single navigate operation.
type NavigationGroup struct {
	navigate func(ctx context.Context, route string) error
}

// Navigate routes the host UI to route.
func (n NavigationGroup) Navigate(ctx context.Context, route string) error {
	return n.navigate(ctx, route)
}
