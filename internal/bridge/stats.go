package bridge

import "sync/atomic"

type Stats struct {
	PacketsSent     atomic.Uint64
	PacketsReceived atomic.Uint64
	BytesSent       atomic.Uint64
	BytesReceived   atomic.Uint64
	SendErrors      atomic.Uint64
	ReceiveErrors   atomic.Uint64
	RxInjectDrops   atomic.Uint64
	TxQueueDrops    atomic.Uint64
}

// StatsSnapshot is the value-type view handed to the control API and the
// metrics exporter.
type StatsSnapshot struct {
	PacketsSent     uint64 `json:"packets_sent"`
	PacketsReceived uint64 `json:"packets_received"`
	BytesSent       uint64 `json:"bytes_sent"`
	BytesReceived   uint64 `json:"bytes_received"`
	SendErrors      uint64 `json:"send_errors"`
	ReceiveErrors   uint64 `json:"receive_errors"`
	RxInjectDrops   uint64 `json:"rx_inject_drops"`
	TxQueueDrops    uint64 `json:"tx_queue_drops"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		PacketsSent:     s.PacketsSent.Load(),
		PacketsReceived: s.PacketsReceived.Load(),
		BytesSent:       s.BytesSent.Load(),
		BytesReceived:   s.BytesReceived.Load(),
		SendErrors:      s.SendErrors.Load(),
		ReceiveErrors:   s.ReceiveErrors.Load(),
		RxInjectDrops:   s.RxInjectDrops.Load(),
		TxQueueDrops:    s.TxQueueDrops.Load(),
	}
}

func (s StatsSnapshot) Add(other StatsSnapshot) StatsSnapshot {
	return StatsSnapshot{
		PacketsSent:     s.PacketsSent + other.PacketsSent,
		PacketsReceived: s.PacketsReceived + other.PacketsReceived,
		BytesSent:       s.BytesSent + other.BytesSent,
		BytesReceived:   s.BytesReceived + other.BytesReceived,
		SendErrors:      s.SendErrors + other.SendErrors,
		ReceiveErrors:   s.ReceiveErrors + other.ReceiveErrors,
		RxInjectDrops:   s.RxInjectDrops + other.RxInjectDrops,
		TxQueueDrops:    s.TxQueueDrops + other.TxQueueDrops,
	}
}
