package sse

import (
	"context"
	"sync"

	"restaurant-pos/internal/models"
)

// AllStations subscribes a client to every station.
const AllStations = "*"

// KitchenEventEmitter fans KOT events out to kitchen display clients by station.
type KitchenEventEmitter struct {
	// key: station, value: client channels
	clients     map[string][]chan models.KOTEvent
	clientMutex sync.RWMutex
	bufferSize  int
}

// NewKitchenEventEmitter creates a new SSE event emitter for kitchen events
func NewKitchenEventEmitter() *KitchenEventEmitter {
	return &KitchenEventEmitter{
		clients:    make(map[string][]chan models.KOTEvent),
		bufferSize: 32,
	}
}

// Subscribe adds a client for station until ctx is done. The returned channel
// is closed on unsubscribe.
func (e *KitchenEventEmitter) Subscribe(ctx context.Context, station string) <-chan models.KOTEvent {
	if station == "" {
		station = AllStations
	}
	clientChan := make(chan models.KOTEvent, e.bufferSize)

	e.clientMutex.Lock()
	e.clients[station] = append(e.clients[station], clientChan)
	e.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(station, clientChan)
	}()

	return clientChan
}

// Emit broadcasts ev to the ticket's station and to all-station subscribers.
func (e *KitchenEventEmitter) Emit(ev models.KOTEvent) {
	if ev.KOT == nil {
		return
	}

	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()

	targets := [][]chan models.KOTEvent{e.clients[ev.KOT.Station]}
	if ev.KOT.Station != AllStations {
		targets = append(targets, e.clients[AllStations])
	}
	for _, clients := range targets {
		for _, clientChan := range clients {
			// Non-blocking send so a slow display cannot stall the kitchen
			select {
			case clientChan <- ev:
			default:
			}
		}
	}
}

func (e *KitchenEventEmitter) removeClient(station string, clientChan chan models.KOTEvent) {
	e.clientMutex.Lock()
	defer e.clientMutex.Unlock()

	clients := e.clients[station]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[station] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[station]) == 0 {
		delete(e.clients, station)
	}
}

// ClientCount returns the number of clients currently subscribed to a station
func (e *KitchenEventEmitter) ClientCount(station string) int {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()
	return len(e.clients[station])
}
