package hostapi

import "addonhost/internal/events"

// ImportEvents exposes import.on* subscriptions.
type ImportEvents struct {
	b *Bridge
}

func (e ImportEvents) OnDropHover(h events.Handler) events.Unsubscribe {
	return e.b.subscribe(h, events.ImportDropHover)
}

func (e ImportEvents) OnDrop(h events.Handler) events.Unsubscribe {
	return e.b.subscribe(h, events.ImportDrop)
}

func (e ImportEvents) OnDropCancelled(h events.Handler) events.Unsubscribe {
	return e.b.subscribe(h, events.ImportDropCancelled)
}

// PortfolioEvents exposes portfolio.on* subscriptions.
type PortfolioEvents struct {
	b *Bridge
}

func (e PortfolioEvents) OnUpdateStart(h events.Handler) events.Unsubscribe {
	return e.b.subscribe(h, events.PortfolioUpdateStart)
}

func (e PortfolioEvents) OnUpdateComplete(h events.Handler) events.Unsubscribe {
	return e.b.subscribe(h, events.PortfolioUpdateComplete)
}

func (e PortfolioEvents) OnUpdateError(h events.Handler) events.Unsubscribe {
	return e.b.subscribe(h, events.PortfolioUpdateError)
}

// MarketEvents exposes market.on* subscriptions.
type MarketEvents struct {
	b *Bridge
}

func (e MarketEvents) OnSyncStart(h events.Handler) events.Unsubscribe {
	return e.b.subscribe(h, events.MarketSyncStart)
}

func (e MarketEvents) OnSyncComplete(h events.Handler) events.Unsubscribe {
	return e.b.subscribe(h, events.MarketSyncComplete)
}

// EventsGroup groups the three on*-subscription namespaces.
type EventsGroup struct {
	Import    ImportEvents
	Portfolio PortfolioEvents
	Market    MarketEvents
}
