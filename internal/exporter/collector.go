package exporter

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vas-solutus/tapbridge/internal/manager"
)

type statsCollector struct {
	manager *manager.Manager
	logger  *slog.Logger

	attachments    *prometheus.Desc
	framesSent     *prometheus.Desc
	framesReceived *prometheus.Desc
	bytesSent      *prometheus.Desc
	bytesReceived  *prometheus.Desc
	sendErrors     *prometheus.Desc
	receiveErrors  *prometheus.Desc
	injectDrops    *prometheus.Desc
	queueDrops     *prometheus.Desc
}

func newCollector(mgr *manager.Manager, logger *slog.Logger) *statsCollector {
	labels := []string{"device"}
	return &statsCollector{
		manager: mgr,
		logger:  logger,
		attachments: prometheus.NewDesc("tapbridge_attachments",
			"Number of bridge attachments", nil, nil),
		framesSent: prometheus.NewDesc("tapbridge_frames_sent_total",
			"Frames forwarded from the interface to the transport", labels, nil),
		framesReceived: prometheus.NewDesc("tapbridge_frames_received_total",
			"Frames injected into the interface from the transport", labels, nil),
		bytesSent: prometheus.NewDesc("tapbridge_bytes_sent_total",
			"Bytes forwarded from the interface to the transport", labels, nil),
		bytesReceived: prometheus.NewDesc("tapbridge_bytes_received_total",
			"Bytes injected into the interface from the transport", labels, nil),
		sendErrors: prometheus.NewDesc("tapbridge_send_errors_total",
			"Fatal transport write errors", labels, nil),
		receiveErrors: prometheus.NewDesc("tapbridge_receive_errors_total",
			"Fatal transport read errors", labels, nil),
		injectDrops: prometheus.NewDesc("tapbridge_inject_drops_total",
			"Received frames dropped because the interface was inactive", labels, nil),
		queueDrops: prometheus.NewDesc("tapbridge_queue_drops_total",
			"Outbound frames dropped because the transmit queue was full", labels, nil),
	}
}

func (sc *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sc.attachments
	ch <- sc.framesSent
	ch <- sc.framesReceived
	ch <- sc.bytesSent
	ch <- sc.bytesReceived
	ch <- sc.sendErrors
	ch <- sc.receiveErrors
	ch <- sc.injectDrops
	ch <- sc.queueDrops
}

func (sc *statsCollector) Collect(ch chan<- prometheus.Metric) {
	infos := sc.manager.List()
	ch <- prometheus.MustNewConstMetric(sc.attachments,
		prometheus.GaugeValue, float64(len(infos)))

	for _, info := range infos {
		s := info.Stats
		ch <- prometheus.MustNewConstMetric(sc.framesSent,
			prometheus.CounterValue, float64(s.PacketsSent), info.Device)
		ch <- prometheus.MustNewConstMetric(sc.framesReceived,
			prometheus.CounterValue, float64(s.PacketsReceived), info.Device)
		ch <- prometheus.MustNewConstMetric(sc.bytesSent,
			prometheus.CounterValue, float64(s.BytesSent), info.Device)
		ch <- prometheus.MustNewConstMetric(sc.bytesReceived,
			prometheus.CounterValue, float64(s.BytesReceived), info.Device)
		ch <- prometheus.MustNewConstMetric(sc.sendErrors,
			prometheus.CounterValue, float64(s.SendErrors), info.Device)
		ch <- prometheus.MustNewConstMetric(sc.receiveErrors,
			prometheus.CounterValue, float64(s.ReceiveErrors), info.Device)
		ch <- prometheus.MustNewConstMetric(sc.injectDrops,
			prometheus.CounterValue, float64(s.RxInjectDrops), info.Device)
		ch <- prometheus.MustNewConstMetric(sc.queueDrops,
			prometheus.CounterValue, float64(s.TxQueueDrops), info.Device)
	}
}
