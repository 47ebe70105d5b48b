package workflow

// AfterValidate picks the step that follows validate: approve when there
// are no errors, ingest for a retryable failure, otherwise complete.
func AfterValidate(s InvoiceState) Step {
	if len(s.ValidationErrors) == 0 {
		return StepApprove
	}
	if s.Failure.Retryable() {
		return StepIngest
	}
	return StepComplete
}

// AfterApprove picks the step that follows approve.
func AfterApprove(s InvoiceState) Step {
	if s.ApprovalStatus == StatusApproved {
		return StepPay
	}
	return StepComplete
}
