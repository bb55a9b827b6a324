package hostapi

import (
	"context"

	"addonhost/internal/events"
)

// NewStubFunctions returns a Functions record backed entirely by
// in-memory placeholders. The real host command layer lives outside
// this module's boundary; this stub is what lets the addon host build,
// wire, and be exercised end-to-end on its own, the way a library ships
// an in-memory fake of an interface it otherwise only consumes.
func NewStubFunctions(bus *events.Bus) Functions {
	echo := func(name string) Func {
		return func(ctx context.Context, args ...any) (any, error) {
			return map[string]any{"op": name, "args": args}, nil
		}
	}
	return Functions{
		AccountsGetAll: echo("accounts.getAll"),
		AccountsCreate: echo("accounts.create"),
		AccountsUpdate: echo("accounts.update"),

		PortfolioGetHoldings:             echo("portfolio.getHoldings"),
		PortfolioGetHolding:              echo("portfolio.getHolding"),
		PortfolioUpdate:                  echo("portfolio.update"),
		PortfolioRecalculate:             echo("portfolio.recalculate"),
		PortfolioGetIncomeSummary:        echo("portfolio.getIncomeSummary"),
		PortfolioGetHistoricalValuations: echo("portfolio.getHistoricalValuations"),
		PortfolioGetLatestValuations:     echo("portfolio.getLatestValuations"),

		ActivitiesGetAll:            echo("activities.getAll"),
		ActivitiesSearch:            echo("activities.search"),
		ActivitiesCreate:            echo("activities.create"),
		ActivitiesUpdate:            echo("activities.update"),
		ActivitiesSaveMany:          echo("activities.saveMany"),
		ActivitiesImport:            echo("activities.import"),
		ActivitiesCheckImport:       echo("activities.checkImport"),
		ActivitiesGetImportMapping:  echo("activities.getImportMapping"),
		ActivitiesSaveImportMapping: echo("activities.saveImportMapping"),

		MarketSearchTicker: echo("market.searchTicker"),
		MarketSyncHistory:  echo("market.syncHistory"),
		MarketSync:         echo("market.sync"),
		MarketGetProviders: echo("market.getProviders"),

		AssetsGetProfile:       echo("assets.getProfile"),
		AssetsUpdateProfile:    echo("assets.updateProfile"),
		AssetsUpdateDataSource: echo("assets.updateDataSource"),

		QuotesUpdate:     echo("quotes.update"),
		QuotesGetHistory: echo("quotes.getHistory"),

		PerformanceCalculateHistory:        echo("performance.calculateHistory"),
		PerformanceCalculateSummary:        echo("performance.calculateSummary"),
		PerformanceCalculateAccountsSimple: echo("performance.calculateAccountsSimple"),

		ExchangeRatesGetAll: echo("exchangeRates.getAll"),
		ExchangeRatesUpdate: echo("exchangeRates.update"),
		ExchangeRatesAdd:    echo("exchangeRates.add"),

		ContributionLimitsGetAll:            echo("contributionLimits.getAll"),
		ContributionLimitsCreate:            echo("contributionLimits.create"),
		ContributionLimitsUpdate:            echo("contributionLimits.update"),
		ContributionLimitsCalculateDeposits: echo("contributionLimits.calculateDeposits"),

		GoalsGetAll:            echo("goals.getAll"),
		GoalsCreate:            echo("goals.create"),
		GoalsUpdate:            echo("goals.update"),
		GoalsUpdateAllocations: echo("goals.updateAllocations"),
		GoalsGetAllocations:    echo("goals.getAllocations"),

		SettingsGet:            echo("settings.get"),
		SettingsUpdate:         echo("settings.update"),
		SettingsBackupDatabase: echo("settings.backupDatabase"),

		FilesOpenCsvDialog:  echo("files.openCsvDialog"),
		FilesOpenSaveDialog: echo("files.openSaveDialog"),

		QueryGetClient:         echo("query.getClient"),
		QueryInvalidateQueries: echo("query.invalidateQueries"),
		QueryRefetchQueries:    echo("query.refetchQueries"),

		Navigate: func(ctx context.Context, route string) error {
			return nil
		},

		EventBus: bus,
	}
}
