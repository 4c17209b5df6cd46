package log

import (
	"sort"
	"time"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldDuration      = "duration_ms"
	FieldChildID       = "child_id"
	FieldPaymentID     = "payment_id"
	FieldSchoolYear    = "school_year"
	FieldObligation    = "obligation"
	FieldPeriod        = "period"
	FieldDaysLate      = "days_late"
	FieldAmountCents   = "amount_cents"
	FieldCount         = "count"
	FieldCacheHit      = "cache_hit"
	FieldSheetsRef     = "sheets_ref"
	FieldBackend       = "backend"
	FieldRemoteAddr    = "remote_addr"
	FieldRequestID     = "request_id"
	FieldStatus        = "status"
	FieldPath          = "path"
	FieldSchemaVersion = "schema_version"
)

// Components
const (
	ComponentApp      = "app"
	ComponentBilling  = "billing"
	ComponentArrears  = "arrears"
	ComponentReminder = "reminder"
	ComponentReport   = "report"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentBackend  = "backend"
	ComponentMetrics  = "metrics"
)

// Operations
const (
	OpLoad     = "load"
	OpDetect   = "detect"
	OpDash     = "dashboard"
	OpReport   = "report"
	OpDetail   = "day_detail"
	OpRemind   = "remind"
	OpPublish  = "publish"
	OpExport   = "export"
	OpMigrate  = "migrate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// Error types
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields is a builder for structured log fields.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds the error message, and its type when one is given.
func (f LogFields) WithError(err error, errType ...string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		if len(errType) > 0 {
			f[FieldErrorType] = errType[0]
		}
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithDuration(d time.Duration) LogFields {
	f[FieldDuration] = d.Milliseconds()
	return f
}

func (f LogFields) WithChild(childID string) LogFields {
	f[FieldChildID] = childID
	return f
}

func (f LogFields) WithSchoolYear(sy string) LogFields {
	f[FieldSchoolYear] = sy
	return f
}

// WithArrears adds the fields describing one overdue obligation.
func (f LogFields) WithArrears(obligation, period string, daysLate int, amountCents int64) LogFields {
	f[FieldObligation] = obligation
	f[FieldPeriod] = period
	f[FieldDaysLate] = daysLate
	f[FieldAmountCents] = amountCents
	return f
}

// ToSlice converts the fields to slog arguments, ordered by key.
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
