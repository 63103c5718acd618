package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldOwner         = "owner"
	FieldGranularity   = "granularity"
	FieldPeriod        = "period"
	FieldDefinitionID  = "definition_id"
	FieldTransactionID = "transaction_id"
	FieldFrequency     = "frequency"
	FieldState         = "state"
	FieldJob           = "job"
	FieldDuration      = "duration_ms"
	FieldAmount        = "amount"
	FieldRoutingKey    = "routing_key"
	FieldSuccess       = "success"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentScheduler = "scheduler"
	ComponentRecurring = "recurring"
	ComponentSummary   = "summary"
	ComponentBudget    = "budget"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpList     = "list"
	OpTick     = "tick"
	OpSummary  = "summary"
	OpPublish  = "publish"
	OpAppend   = "append"
	OpMigrate  = "migrate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithPeriod adds owner and period fields
func (f LogFields) WithPeriod(owner int64, granularity, periodID string) LogFields {
	f[FieldOwner] = owner
	f[FieldGranularity] = granularity
	f[FieldPeriod] = periodID
	return f
}

// WithDefinition adds recurring definition fields
func (f LogFields) WithDefinition(id, owner int64, frequency string) LogFields {
	f[FieldDefinitionID] = id
	f[FieldOwner] = owner
	f[FieldFrequency] = frequency
	return f
}

// WithJob adds scheduler job fields
func (f LogFields) WithJob(name string, durationMs int64, success bool) LogFields {
	f[FieldJob] = name
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a key-sorted slice for slog
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
