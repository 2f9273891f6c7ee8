/*
 * file: outbound.go
 * package: gateway
 * description:
 *     Two background pushers that do not originate from a Manager event:
 *     availableGames, re-sent whenever the Plugin Registry's catalog
 *     changes, and serverMetrics, sampled on a fixed cadence and sent only
 *     to connections that asked for it via subscribeMetrics.
 */
package gateway

import (
	"time"

	"github.com/juan10024/tictactoe-test/internal/adapters/dto"
	"github.com/juan10024/tictactoe-test/internal/core/monitor"
)

// runMetricsPusher samples the Resource Monitor on the configured cadence
// and fans the result out to every connection that opted in.
func (gw *Gateway) runMetricsPusher(stop <-chan struct{}) {
	if gw.monitor == nil {
		return
	}
	ticker := time.NewTicker(gw.cfg.MetricsCadence)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			gw.pushMetrics()
		}
	}
}

func (gw *Gateway) pushMetrics() {
	rooms, activeGames, playerCount := gw.manager.Counts()
	sample := gw.monitor.Sample(monitor.Counts{Rooms: rooms, ActiveGames: activeGames, Players: playerCount})
	payload := dto.ServerMetricsPayload{
		Rooms:              sample.Rooms,
		ActiveGames:        sample.ActiveGames,
		Players:            sample.Players,
		ProcessMemoryBytes: sample.ProcessMemoryBytes,
		CPULoad1m:          sample.CPULoad1m,
		InboundLatencyP50:  sample.InboundLatencyP50,
		InboundLatencyP95:  sample.InboundLatencyP95,
		InboundLatencyP99:  sample.InboundLatencyP99,
		OutboundLatencyP50: sample.OutboundLatencyP50,
		OutboundLatencyP95: sample.OutboundLatencyP95,
		OutboundLatencyP99: sample.OutboundLatencyP99,
		SampledAt:          sample.SampledAt,
	}

	gw.mu.RLock()
	conns := make([]*connection, 0, len(gw.conns))
	for _, c := range gw.conns {
		if c.subscribeMetrics {
			conns = append(conns, c)
		}
	}
	gw.mu.RUnlock()

	for _, c := range conns {
		c.enqueue("serverMetrics", payload)
	}
}

// runRegistryPusher re-broadcasts availableGames whenever a new plugin is
// registered. Registration only ever happens at startup in this server,
// but the push stays live in case a future plugin loads lazily.
func (gw *Gateway) runRegistryPusher(stop <-chan struct{}) {
	changes := gw.registry.Changes()
	for {
		select {
		case <-stop:
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			gw.broadcastAvailableGames()
		}
	}
}

func (gw *Gateway) broadcastAvailableGames() {
	entries := dto.FromDefinitions(gw.registry.List())

	gw.mu.RLock()
	conns := make([]*connection, 0, len(gw.conns))
	for _, c := range gw.conns {
		conns = append(conns, c)
	}
	gw.mu.RUnlock()

	for _, c := range conns {
		c.enqueue("availableGames", entries)
	}
}
