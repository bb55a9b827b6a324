package hostapi

import (
	"fmt"
	"sync"

	"addonhost/internal/addonhost/hostlog"
	"addonhost/internal/events"
)

// Bridge is the per-addon grouped facade built from a single Functions
// record. It is constructed fresh for every addon so the logger group
// can prefix with that addon's id and so subscription tracking for
// auto-unlisten never crosses addon boundaries.
type Bridge struct {
	AddonID string

	Accounts           AccountsGroup
	Portfolio          PortfolioGroup
	Activities         ActivitiesGroup
	Market             MarketGroup
	Assets             AssetsGroup
	Quotes             QuotesGroup
	Performance        PerformanceGroup
	ExchangeRates      ExchangeRatesGroup
	ContributionLimits ContributionLimitsGroup
	Goals              GoalsGroup
	Settings           SettingsGroup
	Files              FilesGroup
	Query              QueryGroup
	Navigation         NavigationGroup
	Logger             LoggerGroup
	Events             EventsGroup

	bus *events.Bus

	mu    sync.Mutex
	unsub []events.Unsubscribe
}

// New builds a Bridge for addonID from fns. Every group is populated
// directly from the matching Functions fields; the bridge performs no
// translation beyond this grouping.
func New(addonID string, fns Functions, log hostlog.Logger) *Bridge {
	if log == nil {
		log = hostlog.New("hostapi")
	}
	b := &Bridge{
		AddonID: addonID,
		bus:     fns.EventBus,
		Accounts: AccountsGroup{
			GetAll: fns.AccountsGetAll,
			Create: fns.AccountsCreate,
			Update: fns.AccountsUpdate,
		},
		Portfolio: PortfolioGroup{
			GetHoldings:             fns.PortfolioGetHoldings,
			GetHolding:              fns.PortfolioGetHolding,
			Update:                  fns.PortfolioUpdate,
			Recalculate:             fns.PortfolioRecalculate,
			GetIncomeSummary:        fns.PortfolioGetIncomeSummary,
			GetHistoricalValuations: fns.PortfolioGetHistoricalValuations,
			GetLatestValuations:     fns.PortfolioGetLatestValuations,
		},
		Activities: ActivitiesGroup{
			GetAll:            fns.ActivitiesGetAll,
			Search:            fns.ActivitiesSearch,
			Create:            fns.ActivitiesCreate,
			Update:            fns.ActivitiesUpdate,
			SaveMany:          fns.ActivitiesSaveMany,
			Import:            fns.ActivitiesImport,
			CheckImport:       fns.ActivitiesCheckImport,
			GetImportMapping:  fns.ActivitiesGetImportMapping,
			SaveImportMapping: fns.ActivitiesSaveImportMapping,
		},
		Market: MarketGroup{
			SearchTicker: fns.MarketSearchTicker,
			SyncHistory:  fns.MarketSyncHistory,
			Sync:         fns.MarketSync,
			GetProviders: fns.MarketGetProviders,
		},
		Assets: AssetsGroup{
			GetProfile:       fns.AssetsGetProfile,
			UpdateProfile:    fns.AssetsUpdateProfile,
			UpdateDataSource: fns.AssetsUpdateDataSource,
		},
		Quotes: QuotesGroup{
			Update:     fns.QuotesUpdate,
			GetHistory: fns.QuotesGetHistory,
		},
		Performance: PerformanceGroup{
			CalculateHistory:        fns.PerformanceCalculateHistory,
			CalculateSummary:        fns.PerformanceCalculateSummary,
			CalculateAccountsSimple: fns.PerformanceCalculateAccountsSimple,
		},
		ExchangeRates: ExchangeRatesGroup{
			GetAll: fns.ExchangeRatesGetAll,
			Update: fns.ExchangeRatesUpdate,
			Add:    fns.ExchangeRatesAdd,
		},
		ContributionLimits: ContributionLimitsGroup{
			GetAll:            fns.ContributionLimitsGetAll,
			Create:            fns.ContributionLimitsCreate,
			Update:            fns.ContributionLimitsUpdate,
			CalculateDeposits: fns.ContributionLimitsCalculateDeposits,
		},
		Goals: GoalsGroup{
			GetAll:            fns.GoalsGetAll,
			Create:            fns.GoalsCreate,
			Update:            fns.GoalsUpdate,
			UpdateAllocations: fns.GoalsUpdateAllocations,
			GetAllocations:    fns.GoalsGetAllocations,
		},
		Settings: SettingsGroup{
			Get:            fns.SettingsGet,
			Update:         fns.SettingsUpdate,
			BackupDatabase: fns.SettingsBackupDatabase,
		},
		Files: FilesGroup{
			OpenCsvDialog:  fns.FilesOpenCsvDialog,
			OpenSaveDialog: fns.FilesOpenSaveDialog,
		},
		Query: QueryGroup{
			GetClient:         fns.QueryGetClient,
			InvalidateQueries: fns.QueryInvalidateQueries,
			RefetchQueries:    fns.QueryRefetchQueries,
		},
		Navigation: NavigationGroup{navigate: fns.Navigate},
		Logger:     newLoggerGroup(log, addonID),
	}
	b.Events = EventsGroup{
		Import:    ImportEvents{b: b},
		Portfolio: PortfolioEvents{b: b},
		Market:    MarketEvents{b: b},
	}
	return b
}

// subscribe wraps bus.Subscribe so every handed-out Unsubscribe is both
// usable directly by the addon and tracked for Close's auto-unlisten
// sweep. Calling either the returned thunk or Close is safe; both are
// idempotent and the underlying events.Unsubscribe already tolerates
// repeat calls.
func (b *Bridge) subscribe(h events.Handler, types ...events.EventType) events.Unsubscribe {
	if b.bus == nil {
		panic(fmt.Sprintf("hostapi: addon %s subscribed to events but no EventBus was wired", b.AddonID))
	}
	unsub := b.bus.Subscribe(h, types...)
	b.mu.Lock()
	b.unsub = append(b.unsub, unsub)
	b.mu.Unlock()
	return unsub
}

// Close unregisters every event subscription this bridge instance ever
// handed out. The loader calls this during teardown so an addon's
// event.*.on* registrations never outlive it, on top of (not instead
// of) whatever the addon itself wired through onDisable.
func (b *Bridge) Close() {
	b.mu.Lock()
	pending := b.unsub
	b.unsub = nil
	b.mu.Unlock()

	for _, unsub := range pending {
		unsub()
	}
}
