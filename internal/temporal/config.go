package temporal

import "time"

// TaskQueueName is the Temporal task queue for ledger posting workflows.
const TaskQueueName = "PROPERTY_LEDGER"

// CronWorkflowID identifies the single recurring charge cron workflow. Using
// a fixed ID means starting it again on boot is a no-op when it already runs.
const CronWorkflowID = "recurring-charge-daily"

// DefaultActivityTimeout is the default timeout for ledger posting activities.
const DefaultActivityTimeout = 5 * time.Minute
