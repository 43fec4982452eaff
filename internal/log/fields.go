// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCycleID   = "cycle_id"
	FieldRequestID = "request_id"
	FieldRuleID    = "rule_id"
	FieldShowingID = "showing_id"
	FieldTunerID   = "tuner_id"
	FieldChannelID = "channel_id"
	FieldSessionID = "session_id"

	// Process / pipeline fields
	FieldComponent = "component"
	FieldTrigger   = "trigger"
	FieldStatus    = "status"
	FieldReason    = "reason"

	// State fields
	FieldOldStatus = "old_status"
	FieldNewStatus = "new_status"

	// Path fields
	FieldPath = "path"
)
