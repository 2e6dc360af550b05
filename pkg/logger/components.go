package logger

const (
	ComponentMain     = "main"
	ComponentManager  = "manager"
	ComponentBridge   = "bridge"
	ComponentBridgeRX = "bridge.rx"
	ComponentBridgeTX = "bridge.tx"
	ComponentVTap     = "vtap"
	ComponentAPI      = "api"
	ComponentExporter = "exporter"
	ComponentConfig   = "config"
)
