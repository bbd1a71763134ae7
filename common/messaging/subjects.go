package messaging

// Subjects follow the pattern {domain}.{resource}.{action}.
const (
	// SubjectStockAlertsDispatch carries composed alerts waiting for push delivery.
	SubjectStockAlertsDispatch = "stock.alerts.dispatch"
)

// Queue group names for load-balanced consumers.
const (
	QueueDispatchWorkers = "dispatch-workers"
)

// HeaderMessageID echoes the dispatch request id on replies.
const HeaderMessageID = "Stockwatch-Msg-Id"
