package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Connection / show
	FieldConnID    = "conn_id"
	FieldSeatID    = "seat_id"
	FieldPerformer = "performer_id"
	FieldTarget    = "target_id"
	FieldShowState = "show_status"
	FieldMsgType   = "msg_type"

	// Service
	FieldService = "service"
)
